package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/symbolicate"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultParallelism is the worker count when neither the request nor the
	// orchestrator sets one.
	DefaultParallelism = 1

	// DefaultLockTTL bounds how long an abandoned output lock survives.
	DefaultLockTTL = 10 * time.Minute
)

// Orchestrator starts render jobs. It holds no per-render state and is safe for
// concurrent use.
type Orchestrator struct {
	provider  ports.SessionProvider
	assembler ports.Assembler

	symbolicator *symbolicate.Symbolicator
	store        ports.RecordStore
	locker       ports.DistributedLocker
	lockTTL      time.Duration
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	tracer       trace.Tracer
	parallelism  int
	newID        func() string
}

// New creates an Orchestrator capturing frames through provider and writing the
// result through assembler.
func New(provider ports.SessionProvider, assembler ports.Assembler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:    provider,
		assembler:   assembler,
		lockTTL:     DefaultLockTTL,
		logger:      logging.NewNop(),
		tracer:      observability.Tracer(),
		parallelism: DefaultParallelism,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start validates req and launches it in the background.
// Only invalid requests return an error; every other failure is reported through the
// job's outcome. Cancelling ctx cancels the job.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Job, error) {
	if o.provider == nil || o.assembler == nil {
		return nil, fmt.Errorf("%w: orchestrator needs a session provider and an assembler", domain.ErrInvalidRequest)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Parallelism == 0 {
		req.Parallelism = o.parallelism
	}

	j := newJob(o, o.newID(), req)
	j.launch(ctx)
	return j, nil
}

// Render runs req to completion and returns its outcome.
// An invalid request yields a Failed outcome.
func (o *Orchestrator) Render(ctx context.Context, req Request) domain.Outcome {
	j, err := o.Start(ctx, req)
	if err != nil {
		return domain.Failed(err)
	}
	<-j.Done()
	out, _ := j.Outcome()
	return out
}
