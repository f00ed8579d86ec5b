package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/baxromumarov/fresher-hunter/internal/api"
	"github.com/baxromumarov/fresher-hunter/internal/app"
	"github.com/baxromumarov/fresher-hunter/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jobhunter",
		Short:         "Crawl company career pages for entry-level tech jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.Int("target", 0, "Stop after this many qualified jobs")
	f.Duration("max-run", 0, "Wall-clock limit for one crawl")
	f.Duration("fetch-timeout", 0, "Timeout for a single page fetch")
	f.Int("concurrency", 0, "Domains crawled in parallel")
	f.Bool("dry-run", false, "Crawl and report without writing to any sink")
	f.String("domains", "", "Domain list file (one domain[,status[,last_scraped]] per line)")
	f.String("sheet", "", "xlsx workbook with a Domains sheet; results are written back to it")
	f.String("db", "", "PostgreSQL URL used as domain source and run history")
	f.String("report", "", "Write the JSON report to this path (- for stdout)")
	f.String("profile", "", "JSON alignment profile overriding the built-in terms")
	f.String("log-level", "", "debug, info, warn or error")

	cmd.AddCommand(newRunCmd(), newServeCmd())
	return cmd
}

// loadConfig layers explicitly set flags over .env and environment values.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Changed(name) {
			err = apply()
		}
	}
	set("target", func() (e error) { cfg.TargetCount, e = f.GetInt("target"); return })
	set("max-run", func() (e error) { cfg.MaxRunDuration, e = f.GetDuration("max-run"); return })
	set("fetch-timeout", func() (e error) { cfg.PerFetchTimeout, e = f.GetDuration("fetch-timeout"); return })
	set("concurrency", func() (e error) { cfg.Concurrency, e = f.GetInt("concurrency"); return })
	set("dry-run", func() (e error) { cfg.DryRun, e = f.GetBool("dry-run"); return })
	set("domains", func() (e error) { cfg.DomainsFile, e = f.GetString("domains"); return })
	set("sheet", func() (e error) { cfg.SheetPath, e = f.GetString("sheet"); return })
	set("db", func() (e error) { cfg.DatabaseURL, e = f.GetString("db"); return })
	set("report", func() (e error) { cfg.ReportPath, e = f.GetString("report"); return })
	set("profile", func() (e error) { cfg.ProfilePath, e = f.GetString("profile"); return })
	set("log-level", func() (e error) { cfg.LogLevel, e = f.GetString("log-level"); return })
	set("addr", func() (e error) { cfg.Addr, e = f.GetString("addr"); return })
	set("interval", func() (e error) { cfg.RunInterval, e = f.GetDuration("interval"); return })
	return err
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one crawl and deliver the report",
		Example: `  jobhunter run --domains companies.txt --report -
  jobhunter run --sheet companies.xlsx --target 20 --max-run 45m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg)
		},
	}
}

func runOnce(ctx context.Context, cfg config.Config) error {
	runner, closer, err := app.Build(cfg, slog.Default())
	if err != nil {
		slog.Error("failed to build crawler", "error", err)
		return err
	}
	defer closer.Close()

	rep, err := runner.RunOnce(ctx)
	if rep.RunID != uuid.Nil {
		fmt.Fprintln(os.Stderr, rep.Summary())
	}
	if err != nil {
		slog.Error("crawl failed", "error", err)
		return err
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Crawl on a schedule and serve run status over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().Duration("interval", 0, "Time between scheduled crawls")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.RunInterval <= 0 {
		return &config.Error{Field: "RunInterval", Value: cfg.RunInterval, Rule: "must be > 0"}
	}
	runner, closer, err := app.Build(cfg, slog.Default())
	if err != nil {
		slog.Error("failed to build crawler", "error", err)
		return err
	}
	defer closer.Close()

	app.NewScheduler(runner, cfg.RunInterval, runner.Pruner(), cfg.Retention).Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(ctx, runner).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server", "addr", cfg.Addr, "interval", cfg.RunInterval)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		return err
	}
	return nil
}
