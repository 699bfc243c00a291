package main

import (
	"fmt"
	"time"

	"github.com/msolis/catfetch"
)

// Run executes the runs list command.
func (c *RunsListCmd) Run(deps *Dependencies) error {
	if deps.Runs == nil {
		fmt.Fprintln(deps.Stdout, "Run history is disabled. Set database_path in the config to enable it.")
		return nil
	}

	filter := catfetch.RunFilter{Limit: c.Limit}
	if c.Target != "" {
		filter.TargetKey = &c.Target
	}
	if c.Status != "" {
		filter.Status = &c.Status
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs found. Use 'catfetch fetch' to extract a catalog.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %-9s  %4d records  %s\n",
			run.ID, run.StartedAt.Format(time.RFC3339), run.Status, run.RecordCount, run.Target.Key())
	}

	return nil
}

// Run executes the runs show command.
func (c *RunsShowCmd) Run(deps *Dependencies) error {
	if deps.Runs == nil {
		fmt.Fprintln(deps.Stdout, "Run history is disabled. Set database_path in the config to enable it.")
		return nil
	}

	run, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Run:      %s\n", run.ID)
	fmt.Fprintf(deps.Stdout, "Target:   %s\n", run.Target.Key())
	fmt.Fprintf(deps.Stdout, "Status:   %s\n", run.Status)
	if run.Config != nil {
		fmt.Fprintf(deps.Stdout, "Config:   %s\n", run.Config.Label)
	}
	fmt.Fprintf(deps.Stdout, "Pages:    %d\n", run.Pages)
	fmt.Fprintf(deps.Stdout, "Retries:  %d\n", run.Retries)
	fmt.Fprintf(deps.Stdout, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(deps.Stdout, "Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	if run.Err != nil {
		fmt.Fprintf(deps.Stdout, "Error:    %s\n", catfetch.ErrorMessage(run.Err))
	}
	fmt.Fprintf(deps.Stdout, "Records:  %d\n", len(run.Records))

	for _, rec := range run.Records {
		price := rec.Price
		if rec.OfferPrice != "" {
			price = rec.OfferPrice + " (offer)"
		}
		fmt.Fprintf(deps.Stdout, "  %s  %s  %s\n", rec.ID, rec.Name, price)
	}

	return nil
}
