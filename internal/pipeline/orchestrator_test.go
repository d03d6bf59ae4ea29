package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNextSleep(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"fast cycle", time.Second, 9 * time.Second},
		{"slow cycle", 9 * time.Second, 2 * time.Second},
		{"overrun", 30 * time.Second, 2 * time.Second},
		{"exact", 8 * time.Second, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextSleep(10*time.Second, 2*time.Second, tt.elapsed); got != tt.want {
				t.Errorf("nextSleep(%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

type countingRunner struct {
	runs   atomic.Int32
	cancel context.CancelFunc
	stopAt int32
}

func (r *countingRunner) Run(context.Context) (CycleStats, error) {
	n := r.runs.Add(1)
	if n >= r.stopAt {
		r.cancel()
	}
	if n == 1 {
		return CycleStats{}, errors.New("upstream unavailable")
	}
	return CycleStats{}, nil
}

func TestScanLoopSurvivesFailedCycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runner := &countingRunner{cancel: cancel, stopAt: 3}
	o := NewOrchestrator(OrchestratorConfig{
		Scanner:  runner,
		Cooldown: time.Millisecond,
		MinSleep: time.Millisecond,
		Logger:   discardLogger(),
	})
	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run = %v, want clean shutdown", err)
	}
	if got := runner.runs.Load(); got != 3 {
		t.Errorf("runs = %d, want 3", got)
	}
}

type loopRecorder struct {
	started chan time.Duration
}

func (l *loopRecorder) RunLoop(ctx context.Context, interval time.Duration) error {
	l.started <- interval
	<-ctx.Done()
	return nil
}

func TestOrchestratorStartsAutosave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := &loopRecorder{started: make(chan time.Duration, 1)}
	o := NewOrchestrator(OrchestratorConfig{
		Scanner:   &countingRunner{cancel: func() {}, stopAt: 1 << 30},
		Persister: loop,
		Cooldown:  time.Millisecond,
		MinSleep:  time.Millisecond,
		Logger:    discardLogger(),
	})

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case got := <-loop.started:
		if got != 5*time.Minute {
			t.Errorf("autosave interval = %v, want 5m", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("autosave loop not started")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
}

func TestScanLoopTrigger(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trigger := make(chan struct{}, 1)
	runner := &countingRunner{cancel: cancel, stopAt: 2}
	o := NewOrchestrator(OrchestratorConfig{
		Scanner:  runner,
		Cooldown: time.Hour,
		MinSleep: time.Hour,
		Trigger:  trigger,
		Logger:   discardLogger(),
	})
	trigger <- struct{}{}
	if err := o.RunScanLoop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunScanLoop = %v, want context.Canceled", err)
	}
	if got := runner.runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}
