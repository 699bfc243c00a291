package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/config"
	"github.com/msolis/catfetch/discover"
	"github.com/msolis/catfetch/extract"
	"github.com/msolis/catfetch/fs"
	"github.com/msolis/catfetch/goquery"
	cathttp "github.com/msolis/catfetch/http"
	"github.com/msolis/catfetch/lru"
	"github.com/msolis/catfetch/msfresh"
	"github.com/msolis/catfetch/paginate"
	"github.com/msolis/catfetch/rod"
	catslog "github.com/msolis/catfetch/slog"
	"github.com/msolis/catfetch/sqlite"
)

func main() {
	ctx := context.Background()

	m := NewMain()
	defer m.Close()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// ConfigPath is the YAML config location. Set before calling Run().
	ConfigPath string

	// SQLite database backing the run history.
	DB *sqlite.DB

	// Observer overrides the browser-based traffic observer.
	// Used by end-to-end tests to avoid launching Chrome.
	Observer catfetch.Observer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		ConfigPath: defaultConfigPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("catfetch"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'catfetch --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	configPath := m.ConfigPath
	if cli.ConfigPath != "" {
		configPath = cli.ConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	deps.Config = cfg

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Configuration cache: file-backed with an in-process LRU layer.
	if cfg.CacheEnabled {
		fileCache := fs.NewCacheStore(cfg.CacheDir, fs.WithFreshness(cfg.FreshnessWindow))
		memCache, err := lru.New(fileCache, 0)
		if err != nil {
			return err
		}
		deps.Cache = catslog.NewLoggingConfigCache(memCache, logger)
	}

	// Run history.
	if cfg.DatabasePath != "" {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			_ = os.MkdirAll(dir, 0755)
		}
		m.DB = sqlite.NewDB(cfg.DatabasePath)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintln(stderr, "Hint: Set database_path in the config to use a different location")
			return fmt.Errorf("failed to open database at %q: %w", cfg.DatabasePath, err)
		}
		deps.Runs = sqlite.NewRunService(m.DB)
	}

	deps.Writer = fs.NewWriter(cfg.OutputDir)

	// The browser and the extraction pipeline are only wired for fetch.
	if cmd == "fetch" {
		observer := m.Observer
		if observer == nil {
			observer, err = rod.NewObserver(rod.WithCaptureWindow(cfg.CaptureWindow))
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
				return fmt.Errorf("failed to start browser: %w", err)
			}
		}
		defer observer.Close()

		normalizer := msfresh.NewNormalizer()
		prober := catslog.NewLoggingProber(
			cathttp.NewProber(normalizer,
				cathttp.WithTimeout(cfg.RequestTimeout),
				cathttp.WithCompleteThreshold(cfg.CompleteThreshold),
				cathttp.WithLimiter(cathttp.NewHostLimiter(cfg.RequestsPerSecond)),
			),
			logger,
		)

		concurrency := cfg.Concurrency
		if cli.Fetch.Concurrency > 0 {
			concurrency = cli.Fetch.Concurrency
		}

		deps.Runner = &extract.Runner{
			Discoverer: &discover.Discoverer{
				Observer:  catslog.NewLoggingObserver(observer, logger),
				Prober:    prober,
				Cache:     deps.Cache,
				Generator: &discover.Generator{},
				Logger:    logger,
			},
			Driver: &paginate.Driver{
				Prober:      prober,
				RetryDelays: cfg.RetryDelays(),
				Metrics:     paginate.NewMetrics(),
				Logger:      logger,
			},
			Prober:      prober,
			Cache:       deps.Cache,
			Runs:        deps.Runs,
			Fallback:    goquery.New(),
			Concurrency: concurrency,
			RunTimeout:  cfg.RunTimeout,
			Logger:      logger,
		}
	}

	return kongCtx.Run(deps)
}

func defaultConfigPath() string {
	if path := os.Getenv("CATFETCH_CONFIG"); path != "" {
		return path
	}
	return ""
}
