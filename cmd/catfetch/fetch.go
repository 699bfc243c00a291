package main

import (
	"fmt"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/extract"
)

// Run executes the fetch command.
func (c *FetchCmd) Run(deps *Dependencies) error {
	urls := c.URLs
	if len(urls) == 0 {
		urls = deps.Config.Targets
	}
	if len(urls) == 0 {
		err := catfetch.Errorf(catfetch.EINVALID, "no targets: pass catalog URLs or set targets in the config")
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	targets := make([]*catfetch.CatalogTarget, 0, len(urls))
	for _, u := range urls {
		target, err := catfetch.NewCatalogTarget(u)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
			return err
		}
		targets = append(targets, target)
	}

	// Force mode: drop cached configurations so discovery starts over.
	if (c.Force || deps.Config.ForceDiscovery) && deps.Cache != nil {
		for _, target := range targets {
			if err := deps.Cache.Invalidate(deps.Ctx, target); err != nil {
				fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
				return err
			}
		}
	}

	format := deps.Config.OutputFormat
	if c.Format != "" {
		format = c.Format
	}

	progress := func(event extract.ProgressEvent) {
		switch event.Type {
		case extract.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "Extracting %d target(s)\n", event.Total)
		case extract.ProgressCompleted:
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s: %d records\n",
				event.Completed, event.Total, event.Target, event.Records)
		case extract.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  [%d/%d] %s: %v\n",
				event.Completed, event.Total, event.Target, event.Error)
		case extract.ProgressFinished:
			// Summary printed below
		}
	}

	runs, err := deps.Runner.ExtractAll(deps.Ctx, targets, progress)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	var completed, failed, records int
	for _, run := range runs {
		if run.Status == catfetch.RunCompleted {
			completed++
			records += len(run.Records)
		} else {
			failed++
		}

		if c.NoExport || run.Status != catfetch.RunCompleted {
			continue
		}
		path, err := deps.Writer.WriteRun(deps.Ctx, run, format)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error exporting %s: %s\n", run.Target.Key(), catfetch.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "  Wrote %s\n", path)
	}

	fmt.Fprintf(deps.Stdout, "Done: %d completed, %d failed, %d records\n", completed, failed, records)

	if failed > 0 {
		return catfetch.Errorf(catfetch.EINTERNAL, "%d of %d targets failed", failed, len(runs))
	}
	return nil
}
