package main

import (
	"context"
	"io"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/config"
	"github.com/msolis/catfetch/extract"
	"github.com/msolis/catfetch/fs"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config
	Runner *extract.Runner
	Writer *fs.Writer
	Cache  catfetch.ConfigCache
	Runs   catfetch.RunService
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	ConfigPath string `name:"config" short:"C" help:"Path to YAML config file"`

	Fetch FetchCmd `cmd:"" help:"Extract the full catalog for one or more targets"`
	Runs  RunsCmd  `cmd:"" help:"Inspect past extraction runs"`
	Cache CacheCmd `cmd:"" help:"Inspect or clear cached configurations"`
}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	URLs        []string `arg:"" optional:"" help:"Catalog URLs (defaults to config targets)"`
	Format      string   `short:"f" help:"Export format: json or csv (defaults to config)"`
	Force       bool     `help:"Ignore cached configurations and rediscover"`
	Concurrency int      `short:"c" help:"Concurrent target limit (defaults to config)"`
	NoExport    bool     `help:"Skip writing export files"`
}

// RunsCmd groups the run history subcommands.
type RunsCmd struct {
	List RunsListCmd `cmd:"" default:"withargs" help:"List past runs"`
	Show RunsShowCmd `cmd:"" help:"Show one run with its records"`
}

// RunsListCmd is the "runs list" subcommand.
type RunsListCmd struct {
	Target string `help:"Filter by catalog URL"`
	Status string `help:"Filter by status: completed or failed"`
	Limit  int    `default:"20" help:"Maximum runs to show"`
}

// RunsShowCmd is the "runs show" subcommand.
type RunsShowCmd struct {
	ID string `arg:"" help:"Run ID"`
}

// CacheCmd groups the configuration cache subcommands.
type CacheCmd struct {
	Show  CacheShowCmd  `cmd:"" help:"Show the cached configuration for a target"`
	Clear CacheClearCmd `cmd:"" help:"Remove the cached configuration for a target"`
}

// CacheShowCmd is the "cache show" subcommand.
type CacheShowCmd struct {
	URL string `arg:"" help:"Catalog URL"`
}

// CacheClearCmd is the "cache clear" subcommand.
type CacheClearCmd struct {
	URL string `arg:"" help:"Catalog URL"`
}
