package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/reel/pkg/cancel"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Job is one running render invocation.
type Job struct {
	o   *Orchestrator
	id  string
	req Request
	rng domain.FrameRange
	log *slog.Logger

	src   *cancel.Source
	token *cancel.Token
	slot  *stateSlot
	sink  errorSink
	abort context.CancelCauseFunc

	captured atomic.Int64
	started  time.Time

	mu       sync.Mutex
	finished *time.Time

	done    chan struct{}
	outcome domain.Outcome
}

func newJob(o *Orchestrator, id string, req Request) *Job {
	src, token := cancel.New()
	return &Job{
		o:     o,
		id:    id,
		req:   req,
		rng:   req.frameRange(),
		log:   o.logger.With("render_id", id),
		src:   src,
		token: token,
		slot:  newStateSlot(),
		done:  make(chan struct{}),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Token returns the job's cancellation token. Subscribers must not block.
func (j *Job) Token() *cancel.Token { return j.token }

// Cancel requests cancellation. It is safe to call at any time and from any goroutine;
// after the job finished it has no effect on the outcome.
func (j *Job) Cancel() { j.src.Cancel() }

// Done returns a channel closed once the outcome is available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx is done.
// Giving up on ctx does not cancel the job.
func (j *Job) Wait(ctx context.Context) (domain.Outcome, error) {
	select {
	case <-j.done:
		return j.outcome, nil
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	}
}

// Outcome returns the terminal outcome once every worker has unwound.
func (j *Job) Outcome() (domain.Outcome, bool) {
	select {
	case <-j.done:
		return j.outcome, true
	default:
		return domain.Outcome{}, false
	}
}

// State returns the current lifecycle state.
func (j *Job) State() domain.RenderState {
	state, _ := j.slot.load()
	return state
}

// Errors returns every error observed so far, in arrival order, including the ones
// suppressed after the outcome was decided.
func (j *Job) Errors() []error { return j.sink.errors() }

// Warnings returns the non-fatal faults observed so far.
func (j *Job) Warnings() []error { return j.sink.warningList() }

// Record returns a snapshot of the job suitable for persistence.
func (j *Job) Record() domain.RenderRecord {
	state, outcome := j.slot.load()
	rec := domain.RenderRecord{
		ID:          j.id,
		Composition: j.req.Composition.ID,
		State:       state,
		Frames:      int(j.captured.Load()),
		StartedAt:   j.started,
	}
	if state.Terminal() {
		rec.Artifact = outcome.Artifact
		if outcome.Err != nil {
			rec.Error = outcome.Err.Error()
		}
	}
	j.mu.Lock()
	rec.FinishedAt = j.finished
	j.mu.Unlock()
	return rec
}

// Status is the externally visible view of a job.
type Status struct {
	domain.RenderRecord
	Warnings []string `json:"warnings,omitempty"`
	// Report is the symbolicated stack report of a failed render, when available.
	Report string `json:"report,omitempty"`
}

// Status returns the current record plus warnings and, once failed, the error report.
func (j *Job) Status() Status {
	st := Status{RenderRecord: j.Record()}
	for _, w := range j.Warnings() {
		st.Warnings = append(st.Warnings, w.Error())
	}
	if out, ok := j.Outcome(); ok && out.Err != nil {
		var symErr *domain.SymbolicateableError
		if errors.As(out.Err, &symErr) {
			st.Report = symErr.Report()
		}
	}
	return st
}

func (j *Job) launch(parent context.Context) {
	j.started = time.Now()
	// Parent cancellation goes through the token only, so that in-flight errors it
	// causes are classified as post-cancellation.
	ctx, abort := context.WithCancelCause(context.WithoutCancel(parent))
	j.abort = abort

	j.slot.start()
	j.token.SetPanicHandler(func(err error) { j.warn(ctx, err) })
	j.token.Subscribe(func() {
		if j.slot.finalize(domain.Cancelled()) {
			j.log.Info("render cancelled")
			abort(domain.ErrCancelled)
		}
	})

	unlink := func() {}
	if j.req.Cancel != nil {
		unlink = j.req.Cancel.Subscribe(j.src.Cancel)
	}
	stopParent := context.AfterFunc(parent, j.src.Cancel)
	if j.req.Timeout > 0 {
		j.src.CancelAfter(j.req.Timeout)
	}

	go func() {
		defer close(j.done)
		defer abort(nil)
		defer stopParent()
		defer unlink()
		defer j.src.StopTimer()
		j.run(ctx)
	}()
}

func (j *Job) run(ctx context.Context) {
	ctx, span := j.o.tracer.Start(ctx, "reel.render", trace.WithAttributes(
		attribute.String("render_id", j.id),
		attribute.String("composition", j.req.Composition.ID),
		attribute.Int("frames", j.rng.Len()),
		attribute.Int("parallelism", j.req.Parallelism),
	))
	defer span.End()

	if h := j.o.hooks.OnRenderStart; h != nil {
		h(ctx, &domain.RenderEvent{
			EventBase:   j.event(domain.EventRenderStart),
			Composition: j.req.Composition.ID,
			Frames:      j.rng.Len(),
		})
	}
	j.persist(ctx)

	j.execute(ctx)

	if j.token.IsTriggered() {
		<-j.token.Settled()
	}
	state, outcome := j.slot.load()
	if !state.Terminal() {
		j.slot.finalize(domain.Failed(errors.New("render finished without an outcome")))
		_, outcome = j.slot.load()
	}

	now := time.Now()
	j.mu.Lock()
	j.finished = &now
	j.mu.Unlock()
	j.persist(ctx)

	outcome.RenderID = j.id
	outcome.FramesCaptured = int(j.captured.Load())
	outcome.Warnings = j.sink.warningList()
	outcome.Duration = now.Sub(j.started)
	j.outcome = outcome

	span.SetAttributes(attribute.String("outcome", outcome.Kind.String()))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}

	if h := j.o.hooks.OnRenderFinish; h != nil {
		h(ctx, &domain.RenderEvent{
			EventBase:   j.event(domain.EventRenderFinish),
			Composition: j.req.Composition.ID,
			Frames:      j.rng.Len(),
			Outcome:     &outcome,
			Duration:    outcome.Duration,
		})
	}
}

func (j *Job) execute(ctx context.Context) {
	if j.o.locker != nil && j.req.Output != "" {
		unlock, err := j.o.locker.Lock(ctx, lockKey(j.req.Output), j.o.lockTTL)
		if err != nil {
			j.fail(fmt.Errorf("%w: %s: %w", domain.ErrLockAcquire, j.req.Output, err))
			return
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				j.warn(ctx, fmt.Errorf("release output lock: %w", err))
			}
		}()
	}

	frames := j.capture(ctx)
	if frames == nil {
		return
	}

	artifact, err := j.o.assembler.Assemble(ctx, ports.AssembleInput{
		Frames:      frames,
		Composition: j.req.Composition,
		Output:      j.req.Output,
	})
	if err != nil {
		var infra *domain.InfraError
		if !errors.As(err, &infra) {
			err = &domain.InfraError{Kind: domain.KindIO, Op: "assemble", Err: err}
		}
		j.fail(err)
		return
	}
	if artifact == nil {
		j.fail(&domain.InfraError{Kind: domain.KindIO, Op: "assemble", Err: errors.New("assembler returned no artifact")})
		return
	}
	if j.slot.finalize(domain.Succeeded(artifact)) {
		j.log.Info("render succeeded", "location", artifact.Location, "frames", artifact.Frames)
	}
}

// fail reports err to the sink. The first error of a running, uncancelled job
// decides the outcome and aborts the remaining work.
func (j *Job) fail(err error) {
	j.sink.record(err)
	if j.token.IsTriggered() {
		j.log.Debug("error after cancellation suppressed", "err", err)
		return
	}
	if j.slot.finalize(domain.Failed(err)) {
		j.log.Error("render failed", "err", err)
		j.abort(err)
		return
	}
	j.log.Debug("error after outcome ignored", "err", err)
}

func (j *Job) warn(ctx context.Context, err error) {
	j.sink.warn(err)
	j.log.Warn("render warning", "err", err)
	if h := j.o.hooks.OnWarning; h != nil {
		h(ctx, &domain.WarningEvent{EventBase: j.event(domain.EventWarning), Err: err})
	}
}

func (j *Job) persist(ctx context.Context) {
	if j.o.store == nil {
		return
	}
	rec := j.Record()
	if err := j.o.store.Save(context.WithoutCancel(ctx), &rec); err != nil {
		j.warn(ctx, fmt.Errorf("save render record: %w", err))
	}
}

func (j *Job) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RenderID: j.id}
}

func lockKey(output string) string {
	return "output:" + output
}
