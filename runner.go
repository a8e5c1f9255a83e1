package aggregator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultStatusInterval is the status logging interval of runners
// created without WithStatusInterval.
const DefaultStatusInterval = time.Second

// RunnerOption configures a runner.
type RunnerOption func(*Runner)

// WithTimeProvider replaces the standard time package
// as the runner's source of time and timers.
func WithTimeProvider(provider TimeProvider) RunnerOption {
	return func(r *Runner) {
		r.provider = provider
	}
}

// WithLogger sets the runner's logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithStatusInterval sets how often the running runner logs the
// aggregator's status.
func WithStatusInterval(interval Duration) RunnerOption {
	return func(r *Runner) {
		r.interval = interval
	}
}

// NewRunner creates a runner driving a.
// The runner takes ownership of a, which must no longer
// be used directly. Register all streams before Start.
func NewRunner(a *Aggregator, opts ...RunnerOption) *Runner {
	r := &Runner{
		agg:      a,
		provider: timeProvider{},
		log:      slog.Default(),
		interval: DefaultStatusInterval,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Runner drives an Aggregator on its own goroutine, making it safe
// for concurrent use. Samples pushed through the runner are delivered
// to their stream callbacks in non-decreasing timestamp order as soon
// as the aggregator releases them.
//
// Callbacks are invoked on the runner's goroutine and must not call
// back into the runner.
type Runner struct {
	agg      *Aggregator
	provider TimeProvider
	log      *slog.Logger
	interval Duration

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastEmit Time
	emitted  uint64
	pumps    uint64
	started  bool
	closed   bool
}

// Start starts the runner's delivery goroutine.
// The goroutine exits when ctx is canceled or Stop is called.
// Returns ErrRunnerStarted if the runner is already started and
// ErrRunnerClosed if it's stopped.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}
	if r.started {
		return ErrRunnerStarted
	}
	r.started = true

	r.wg.Add(1)
	go r.run(ctx)

	r.log.Info("aggregator: runner started",
		"streams", r.agg.Len(),
		"status_interval", r.interval)
	return nil
}

// Push adds a sample to the stream identified by h and wakes the
// delivery goroutine. See Aggregator.Push for the drop semantics.
// Returns ErrRunnerClosed after Stop.
func (r *Runner) Push(h StreamHandle, ts Time, value any) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	err := r.agg.Push(h, ts, value)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// SetTimeout changes the time the aggregator waits for an expected
// sample on any of its streams.
func (r *Runner) SetTimeout(timeout Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agg.SetTimeout(timeout)
}

// Status returns a snapshot of the aggregator for diagnostics.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agg.Status()
}

// Stats returns the runner's delivery counters.
func (r *Runner) Stats() RunnerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunnerStats{
		Emitted:    r.emitted,
		Pumps:      r.pumps,
		LastEmitAt: r.lastEmit,
	}
}

// Stop stops the delivery goroutine, drains all samples the
// aggregator still releases and closes the runner for pushing.
// Stop is idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	started := r.started
	r.mu.Unlock()

	if started {
		close(r.done)
		r.wg.Wait()
	}
	r.pump()

	r.mu.Lock()
	emitted := r.emitted
	r.mu.Unlock()
	r.log.Info("aggregator: runner stopped", "emitted", emitted)
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	tick := make(chan struct{}, 1)
	watchdog := r.provider.AfterFunc(r.interval, func() {
		select {
		case tick <- struct{}{}:
		default:
		}
	})
	defer watchdog.Stop()

	for {
		r.pump()
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-r.notify:
		case <-tick:
			r.logStatus()
			watchdog.Reset(r.interval)
		}
	}
}

// pump delivers samples until the aggregator holds the rest back.
// A sample held back can only be released by a later push, so
// pumping on every push wake keeps delivery prompt.
func (r *Runner) pump() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.agg.Step() {
		r.emitted++
		r.lastEmit = r.provider.Now()
	}
	r.pumps++
}

func (r *Runner) logStatus() {
	s := r.Status()
	r.log.Debug("aggregator: status",
		"current_time", formatTime(s.CurrentTime),
		"latest_time", formatTime(s.LatestTime),
		"latency", s.Latency,
		"streams", len(s.Streams))
	if overdue := s.Overdue(); len(overdue) > 0 {
		r.log.Warn("aggregator: streams overdue", "streams", overdue)
	}
}

// RunnerStats are counters of a runner's delivery activity.
type RunnerStats struct {
	// Emitted is the number of samples delivered to callbacks.
	Emitted uint64

	// Pumps is the number of delivery rounds the runner ran.
	Pumps uint64

	// LastEmitAt is the wall clock time of the last delivery.
	LastEmitAt Time
}
