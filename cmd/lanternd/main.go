// Command lanternd runs the lantern daemons: the indexer, which accepts
// per-schema document writes and maintains durable indexes on disk, and the
// searcher, which serves filter-plus-rank queries over the same indexes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lanternhq/lantern/internal/config"
	"github.com/lanternhq/lantern/internal/debug"
	"github.com/lanternhq/lantern/internal/index"
	"github.com/lanternhq/lantern/internal/registry"
	"github.com/lanternhq/lantern/internal/server"
	"github.com/lanternhq/lantern/internal/telemetry"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath string
	rootDir    string
	listenAddr string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "lanternd",
		Short:         "Multi-tenant full-text search service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.SetVerbose(verbose)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to lantern.yaml")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "registry root directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "indexer",
			Short: "Run the write-side daemon",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIndexer(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "searcher",
			Short: "Run the read-side daemon",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSearcher(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(Version)
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lanternd: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	return cfg, nil
}

func runIndexer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.IndexerListen = listenAddr
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return fmt.Errorf("create registry root: %w", err)
	}

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	opts := index.Options{
		CommitInterval:   cfg.CommitInterval,
		WriterArenaBytes: cfg.WriterArenaBytes(),
	}
	reg, err := registry.LoadRoot(cfg.Root, opts)
	if err != nil {
		return err
	}
	// Closing the registry runs each index's final commit.
	defer reg.Close()

	debug.PrintNormal("lanternd indexer: %d index(es) loaded from %s, listening on %s\n",
		len(reg.Names()), cfg.Root, cfg.IndexerListen)

	srv := server.NewIndexer(reg, cfg.IndexerListen, opts)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	return g.Wait()
}

func runSearcher(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.SearcherListen = listenAddr
	}

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	opts := index.Options{ReadOnly: true}
	reg, err := registry.LoadRoot(cfg.Root, opts)
	if err != nil {
		return err
	}
	defer reg.Close()

	debug.PrintNormal("lanternd searcher: %d index(es) loaded from %s, listening on %s\n",
		len(reg.Names()), cfg.Root, cfg.SearcherListen)

	srv := server.NewSearcher(reg, cfg.SearcherListen)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	// Hot-load indexes the indexer creates while we run.
	g.Go(func() error { return reg.Watch(ctx) })
	return g.Wait()
}

func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	if !cfg.TelemetryEnabled {
		return func() {}, nil
	}
	shutdown, err := telemetry.Init(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(flushCtx)
	}, nil
}
