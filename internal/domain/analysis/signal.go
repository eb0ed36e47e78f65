package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultJoinPerTask is how long RequestStop waits per tracked task.
const DefaultJoinPerTask = time.Second

// ReleaseHook frees shared accelerator resources when a stop is requested.
type ReleaseHook func(ctx context.Context) error

// StopReport describes what one RequestStop call did.
type StopReport struct {
	AlreadyStopped bool          `json:"alreadyStopped"`
	Pending        int           `json:"pending"`
	Joined         bool          `json:"joined"`
	HookErrors     int           `json:"hookErrors"`
	Waited         time.Duration `json:"waited"`
}

// Signal is a cooperative stop flag. It moves once from running to stopped
// and never back; a fresh Signal is needed to resume.
type Signal struct {
	done     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed when active drops to zero, nil when nobody waits

	joinPerTask time.Duration
	hooks       []ReleaseHook
	logger      *slog.Logger
}

// NewSignal creates a running Signal. A nil logger discards output.
func NewSignal(joinPerTask time.Duration, logger *slog.Logger, hooks ...ReleaseHook) *Signal {
	if joinPerTask <= 0 {
		joinPerTask = DefaultJoinPerTask
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Signal{
		done:        make(chan struct{}),
		joinPerTask: joinPerTask,
		hooks:       hooks,
		logger:      logger,
	}
}

// Done is closed once a stop has been requested.
func (s *Signal) Done() <-chan struct{} { return s.done }

// Stopped reports whether a stop has been requested.
func (s *Signal) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Check is a checkpoint: it returns ErrCancellationRequested once stopped.
func (s *Signal) Check() error {
	if s.Stopped() {
		return ErrCancellationRequested
	}
	return nil
}

// Track registers one background task for the bounded stop join. The
// returned func must be called when the task exits; extra calls are no-ops.
func (s *Signal) Track() (untrack func()) {
	s.mu.Lock()
	s.active++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.active--
			if s.active == 0 && s.idle != nil {
				close(s.idle)
				s.idle = nil
			}
		})
	}
}

// Active returns the number of tracked tasks still running.
func (s *Signal) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RequestStop flips the signal, runs the release hooks and waits up to
// joinPerTask per tracked task for those tasks to exit. A join timeout is
// logged and reported, never returned as an error. Only the first call does
// any work.
func (s *Signal) RequestStop(ctx context.Context) StopReport {
	report := StopReport{AlreadyStopped: true}
	s.stopOnce.Do(func() {
		close(s.done)
		report = s.shutdown(ctx)
	})
	return report
}

func (s *Signal) shutdown(ctx context.Context) StopReport {
	start := time.Now()
	s.logger.Info("stop requested")

	var report StopReport
	for _, hook := range s.hooks {
		if err := hook(ctx); err != nil {
			report.HookErrors++
			s.logger.Warn("accelerator release failed", "error", err)
		}
	}

	idle, pending := s.waitIdle()
	report.Pending = pending
	if pending == 0 {
		report.Joined = true
		report.Waited = time.Since(start)
		return report
	}

	bound := s.joinPerTask * time.Duration(pending)
	timer := time.NewTimer(bound)
	defer timer.Stop()

	select {
	case <-idle:
		report.Joined = true
	case <-timer.C:
		s.logger.Warn("tasks still running after stop", "pending", s.Active(), "bound", bound)
	case <-ctx.Done():
		s.logger.Warn("stop join abandoned", "pending", s.Active(), "error", ctx.Err())
	}
	report.Waited = time.Since(start)
	return report
}

func (s *Signal) waitIdle() (<-chan struct{}, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == 0 {
		return nil, 0
	}
	if s.idle == nil {
		s.idle = make(chan struct{})
	}
	return s.idle, s.active
}

// Switch holds the current master Signal. Stop requests go to the current
// Signal; Rearm replaces a stopped Signal with a fresh one. Work that already
// started keeps observing the Signal it was handed.
type Switch struct {
	mu      sync.RWMutex
	current *Signal

	joinPerTask time.Duration
	hooks       []ReleaseHook
	logger      *slog.Logger
}

// NewSwitch creates a Switch holding a running Signal.
func NewSwitch(joinPerTask time.Duration, logger *slog.Logger, hooks ...ReleaseHook) *Switch {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Switch{joinPerTask: joinPerTask, hooks: hooks, logger: logger}
	w.current = w.newSignal()
	return w
}

func (w *Switch) newSignal() *Signal {
	return NewSignal(w.joinPerTask, w.logger, w.hooks...)
}

// Current returns the Signal new operations should observe.
func (w *Switch) Current() *Signal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// RequestStop stops the current Signal.
func (w *Switch) RequestStop(ctx context.Context) StopReport {
	return w.Current().RequestStop(ctx)
}

// Rearm installs a fresh Signal if the current one is stopped and returns
// the Signal now in effect.
func (w *Switch) Rearm() *Signal {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current.Stopped() {
		w.current = w.newSignal()
		w.logger.Info("stop signal rearmed")
	}
	return w.current
}
