package main

import (
	"testing"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/config"
)

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	root := newRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatal(err)
	}
	if err := serve.ParseFlags([]string{"--target", "25", "--dry-run", "--addr", ":9090", "--interval", "6h"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg := config.Default()
	cfg.SheetPath = "companies.xlsx"
	if err := applyFlags(serve, &cfg); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if cfg.TargetCount != 25 || !cfg.DryRun || cfg.Addr != ":9090" || cfg.RunInterval != 6*time.Hour {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.SheetPath != "companies.xlsx" || cfg.Concurrency != config.Default().Concurrency {
		t.Fatalf("unset flags changed config: %+v", cfg)
	}
}

func TestRunCommandHasNoServeFlags(t *testing.T) {
	root := newRootCmd()
	run, _, err := root.Find([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}
	if err := run.ParseFlags([]string{"--concurrency", "3"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg := config.Default()
	if err := applyFlags(run, &cfg); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if cfg.Concurrency != 3 || cfg.Addr != ":8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
