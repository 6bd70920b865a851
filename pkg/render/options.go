package render

import (
	"log/slog"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/symbolicate"
	"go.opentelemetry.io/otel/trace"
)

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHooks configures the lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithSymbolicator configures how exception stacks are mapped back to source.
// Without it, stack frames are reported unresolved.
func WithSymbolicator(s *symbolicate.Symbolicator) Option {
	return func(o *Orchestrator) {
		o.symbolicator = s
	}
}

// WithStore persists a record of every job.
func WithStore(store ports.RecordStore) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithLocker guards the output location of every job that names one.
// A ttl <= 0 keeps DefaultLockTTL.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.locker = locker
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithParallelism sets the worker count used when a request leaves it at zero.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithIDGenerator overrides how job IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}
