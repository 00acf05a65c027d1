package collectors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultUpdateBufferSize is the default capacity of the updates channel.
	DefaultUpdateBufferSize = 64

	// DefaultStopTimeout is the maximum time Stop() will wait for goroutines
	// to finish before returning.
	DefaultStopTimeout = 5 * time.Second
)

// errTracker deduplicates repeated identical errors per collector.
type errTracker struct {
	lastMsg    string
	lastTime   time.Time
	suppressed int64
}

// Runner starts and stops collector goroutines. Each registered collector
// runs in its own goroutine with an independent ticker, so a collector's
// Collect is never called concurrently with itself. Results fan in to a
// single updates channel.
type Runner struct {
	registry *Registry
	updates  chan<- Update
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopped  chan struct{}
	once     sync.Once

	stopTimeout time.Duration

	errMu       sync.Mutex
	errTrackers map[string]*errTracker
}

// NewRunner creates a runner that sends collection results to the provided
// updates channel. The caller is responsible for creating and reading from
// the channel. If logger is nil, a no-op logger is used.
func NewRunner(registry *Registry, updates chan<- Update, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		registry:    registry,
		updates:     updates,
		logger:      logger,
		stopped:     make(chan struct{}),
		stopTimeout: DefaultStopTimeout,
		errTrackers: make(map[string]*errTracker),
	}
}

// Start launches a goroutine for each registered collector. Each goroutine
// runs Collect() immediately and then at the collector's Interval().
// The provided context controls the lifetime of all collector goroutines.
func (r *Runner) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	names := r.registry.List()
	if len(names) == 0 {
		close(r.stopped)
		return nil
	}

	for _, name := range names {
		c, ok := r.registry.Get(name)
		if !ok {
			continue
		}
		r.wg.Add(1)
		go r.runCollector(ctx, c)
	}

	go func() {
		r.wg.Wait()
		close(r.stopped)
	}()

	return nil
}

// Stop cancels the runner context and waits for all collector goroutines to
// finish, with a timeout to prevent indefinite blocking.
func (r *Runner) Stop() {
	r.once.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})

	select {
	case <-r.stopped:
	case <-time.After(r.stopTimeout):
		r.logger.Warn("collectors: runner stop timed out", "timeout", r.stopTimeout)
	}
}

// Done is closed once every collector goroutine started by Start has
// returned. After that nothing sends on the updates channel, so the caller
// may close it.
func (r *Runner) Done() <-chan struct{} {
	return r.stopped
}

// RunOnce manually triggers a single collection cycle for the named collector.
// It must not be used while the runner is started for the same collector.
func (r *Runner) RunOnce(ctx context.Context, name string) (*CollectResult, error) {
	c, ok := r.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("collector %q not found", name)
	}
	return r.collect(ctx, c)
}

// runCollector is the per-collector goroutine.
func (r *Runner) runCollector(ctx context.Context, c Collector) {
	defer r.wg.Done()

	interval := c.Interval()
	if interval <= 0 {
		interval = time.Second
	}

	r.collectAndSend(ctx, c)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.collectAndSend(ctx, c)
		}
	}
}

// collect runs one Collect call, recording status and turning a panic into
// an error so one misbehaving collector cannot take down the runner.
func (r *Runner) collect(ctx context.Context, c Collector) (result *CollectResult, err error) {
	name := c.Name()
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("collector %s panicked: %v", name, p)
		}

		latency := time.Since(start)
		r.registry.updateStatus(name, func(s *CollectorStatus) {
			s.LastRun = start
			s.RunCount++
			s.LastLatency = latency
			if err != nil {
				s.ErrorCount++
				s.LastError = err
				s.Healthy = false
			} else {
				s.LastError = nil
				s.Healthy = true
			}
		})
	}()

	return c.Collect(ctx)
}

// collectAndSend performs one collection cycle and sends the result.
func (r *Runner) collectAndSend(ctx context.Context, c Collector) {
	name := c.Name()
	start := time.Now()

	result, err := r.collect(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logCollectorError(name, err)
	}

	update := Update{
		Source:    name,
		Result:    result,
		Timestamp: start,
		Error:     err,
	}

	// Non-blocking send: a slow consumer drops updates instead of stalling collectors.
	select {
	case r.updates <- update:
	default:
		r.logger.Warn("collectors: update channel full, dropping update", "collector", name)
	}
}

// logCollectorError deduplicates repeated identical errors from the same
// collector. A recurring message within an hour is logged once per 100 repeats.
func (r *Runner) logCollectorError(name string, err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	msg := err.Error()
	tracker := r.errTrackers[name]
	if tracker == nil {
		tracker = &errTracker{}
		r.errTrackers[name] = tracker
	}
	now := time.Now()
	if msg == tracker.lastMsg && now.Sub(tracker.lastTime) < time.Hour {
		tracker.suppressed++
		if tracker.suppressed%100 == 0 {
			r.logger.Error("collector error repeated", "collector", name, "count", tracker.suppressed, "error", err)
		}
		return
	}
	if tracker.suppressed > 0 {
		r.logger.Info("collector previous error repeated", "collector", name, "count", tracker.suppressed)
	}
	r.logger.Error("collector error", "collector", name, "error", err)
	tracker.lastMsg = msg
	tracker.lastTime = now
	tracker.suppressed = 0
}
