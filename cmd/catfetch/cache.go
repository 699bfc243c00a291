package main

import (
	"fmt"
	"time"

	"github.com/msolis/catfetch"
)

// Run executes the cache show command.
func (c *CacheShowCmd) Run(deps *Dependencies) error {
	if deps.Cache == nil {
		fmt.Fprintln(deps.Stdout, "The configuration cache is disabled.")
		return nil
	}

	target, err := catfetch.NewCatalogTarget(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	cached, err := deps.Cache.Lookup(deps.Ctx, target)
	if err != nil {
		if catfetch.ErrorCode(err) == catfetch.ENOTFOUND {
			fmt.Fprintf(deps.Stdout, "No cached configuration for %s\n", target.Key())
			return nil
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Target:     %s\n", target.Key())
	fmt.Fprintf(deps.Stdout, "Config:     %s\n", cached.Candidate.Label)
	fmt.Fprintf(deps.Stdout, "Discovered: %s\n", cached.DiscoveredAt.Format(time.RFC3339))
	fmt.Fprintf(deps.Stdout, "Validated:  %d items\n", cached.ValidatedCount)

	return nil
}

// Run executes the cache clear command.
func (c *CacheClearCmd) Run(deps *Dependencies) error {
	if deps.Cache == nil {
		fmt.Fprintln(deps.Stdout, "The configuration cache is disabled.")
		return nil
	}

	target, err := catfetch.NewCatalogTarget(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	if err := deps.Cache.Invalidate(deps.Ctx, target); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", catfetch.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Cleared cached configuration for %s\n", target.Key())
	return nil
}
