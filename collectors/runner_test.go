package collectors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// funcCollector runs fn on every Collect call.
type funcCollector struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) (*CollectResult, error)
	calls    atomic.Int64
}

func (f *funcCollector) Name() string            { return f.name }
func (f *funcCollector) Description() string     { return "func " + f.name }
func (f *funcCollector) Interval() time.Duration { return f.interval }
func (f *funcCollector) Collect(ctx context.Context) (*CollectResult, error) {
	f.calls.Add(1)
	return f.fn(ctx)
}

func okCollector(name string) *funcCollector {
	return &funcCollector{
		name:     name,
		interval: 10 * time.Millisecond,
		fn: func(ctx context.Context) (*CollectResult, error) {
			return &CollectResult{Collector: name, Timestamp: time.Now(), Data: 1}, nil
		},
	}
}

func TestRunner_StartSendsUpdates(t *testing.T) {
	reg := NewRegistry()
	reg.Register(okCollector("a"))

	updates := make(chan Update, DefaultUpdateBufferSize)
	r := NewRunner(reg, updates, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	select {
	case u := <-updates:
		if u.Source != "a" {
			t.Errorf("Source = %q, want a", u.Source)
		}
		if u.Error != nil {
			t.Errorf("Error = %v, want nil", u.Error)
		}
		if u.Result == nil || u.Result.Data != 1 {
			t.Errorf("Result = %+v, want Data=1", u.Result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}
}

func TestRunner_EmptyRegistry(t *testing.T) {
	r := NewRunner(NewRegistry(), make(chan Update, 1), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on empty registry")
	}
}

func TestRunner_RunOnceRecordsStatus(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	fc := &funcCollector{
		name:     "bad",
		interval: time.Minute,
		fn: func(ctx context.Context) (*CollectResult, error) {
			return nil, boom
		},
	}
	reg.Register(fc)

	r := NewRunner(reg, make(chan Update, 1), nil)
	if _, err := r.RunOnce(context.Background(), "bad"); !errors.Is(err, boom) {
		t.Fatalf("RunOnce err = %v, want boom", err)
	}

	s, ok := reg.Status("bad")
	if !ok {
		t.Fatal("missing status")
	}
	if s.Healthy || s.ErrorCount != 1 || s.RunCount != 1 {
		t.Errorf("status = %+v, want unhealthy with 1 error and 1 run", s)
	}

	if _, err := r.RunOnce(context.Background(), "missing"); err == nil {
		t.Error("RunOnce on unknown collector should fail")
	}
}

func TestRunner_RecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&funcCollector{
		name:     "panicky",
		interval: time.Minute,
		fn: func(ctx context.Context) (*CollectResult, error) {
			panic("kaboom")
		},
	})

	r := NewRunner(reg, make(chan Update, 1), nil)
	_, err := r.RunOnce(context.Background(), "panicky")
	if err == nil {
		t.Fatal("expected error from panicking collector")
	}
	if s, _ := reg.Status("panicky"); s.Healthy {
		t.Error("panicking collector should be marked unhealthy")
	}
}

func TestRunner_DropsWhenChannelFull(t *testing.T) {
	reg := NewRegistry()
	fc := okCollector("fast")
	reg.Register(fc)

	// Unbuffered and never read: every send must be dropped, not block.
	r := NewRunner(reg, make(chan Update), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked; collector goroutine stuck on send")
	}
	if fc.calls.Load() < 2 {
		t.Errorf("collector ran %d times, want at least 2", fc.calls.Load())
	}
}

func TestRunner_DoneAfterStop(t *testing.T) {
	reg := NewRegistry()
	reg.Register(okCollector("a"))
	r := NewRunner(reg, make(chan Update, DefaultUpdateBufferSize), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-r.Done():
		t.Fatal("Done closed while the collector is running")
	default:
	}

	r.Stop()
	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestRunner_StopTimeoutLeavesDoneOpen(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	stuck := &funcCollector{
		name:     "stuck",
		interval: time.Hour,
		fn: func(context.Context) (*CollectResult, error) {
			close(entered)
			<-release
			return nil, nil
		},
	}
	reg := NewRegistry()
	reg.Register(stuck)
	r := NewRunner(reg, make(chan Update, 1), nil)
	r.stopTimeout = 10 * time.Millisecond
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered

	r.Stop()
	select {
	case <-r.Done():
		t.Fatal("Done closed while Collect is still blocked")
	default:
	}

	close(release)
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after Collect returned")
	}
}
