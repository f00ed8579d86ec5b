package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/core"
)

type fakePruner struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (p *fakePruner) DeleteOldRuns(_ context.Context, olderThan time.Duration) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, olderThan)
	return 3, nil
}

func (p *fakePruner) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestSchedulerRunsImmediately(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{"https://acme.example/": careersPage}}
	sink := &recordingSink{}
	r := NewRunner(testConfig(), testDeps(f, staticSource{{Domain: "acme.example", KnownValid: core.ValidityUnknown}}, sink))
	pruner := &fakePruner{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewScheduler(r, time.Hour, pruner, 30*24*time.Hour).Start(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := r.Latest(ctx); err == nil && pruner.count() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not run the first crawl and cleanup")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := pruner.calls[0]; got != 30*24*time.Hour {
		t.Errorf("retention = %s", got)
	}
}
