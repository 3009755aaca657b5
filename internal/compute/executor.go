package compute

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Executor holds the backend strategy of one solver instance. The
// accelerated backend is built on the first call to Backend; if that fails,
// or if it later reports a runtime failure through Demote, the executor
// serves the CPU backend for the rest of its life.
type Executor struct {
	prefer  bool
	factory Factory
	logger  *log.Logger

	mu      sync.Mutex
	tried   bool
	demoted bool
	accel   Backend
	cpu     *CPUBackend
}

// Option configures an Executor.
type Option func(*Executor)

// WithFactory replaces the accelerated backend factory.
func WithFactory(f Factory) Option {
	return func(e *Executor) { e.factory = f }
}

// WithLogger sets the logger used for downgrade notices.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor. When prefer is false the accelerated
// factory is never called.
func NewExecutor(prefer bool, opts ...Option) *Executor {
	e := &Executor{
		prefer:  prefer,
		factory: Accelerated,
		logger:  log.Default(),
		cpu:     NewCPUBackend(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backend returns the active strategy. It is safe to call every step.
func (e *Executor) Backend() Backend {
	if !e.prefer {
		return e.cpu
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.tried {
		e.tried = true
		b, err := e.factory()
		switch {
		case err != nil:
			e.demoted = true
			e.logger.Info("accelerated backend unavailable, using cpu", "err", err)
		case b == nil || !b.Available():
			e.demoted = true
			if b != nil {
				b.Cleanup()
			}
			e.logger.Info("accelerated backend unavailable, using cpu")
		default:
			e.accel = b
			e.logger.Debug("accelerated backend ready", "backend", b.Name())
		}
	}

	if e.demoted || e.accel == nil {
		return e.cpu
	}
	return e.accel
}

// Demote permanently switches to the CPU backend after a runtime failure.
func (e *Executor) Demote(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.demoted {
		return
	}
	e.tried = true
	e.demoted = true
	if e.accel != nil {
		e.accel.Cleanup()
		e.accel = nil
	}
	e.logger.Info("accelerated backend failed, using cpu", "err", err)
}

// Downgraded reports whether acceleration was wanted but lost.
func (e *Executor) Downgraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefer && e.demoted
}

// Close releases the accelerated backend, if any.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.accel != nil {
		e.accel.Cleanup()
		e.accel = nil
	}
}
