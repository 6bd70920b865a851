package render

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aretw0/reel/pkg/bridge"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// capture runs the worker pool and returns the frames ordered by index, or nil if the
// job was cancelled or failed meanwhile.
func (j *Job) capture(ctx context.Context) []domain.Frame {
	total := j.rng.Len()
	frames := make([]domain.Frame, total)
	units := make(chan int)

	var g errgroup.Group
	g.Go(func() error {
		defer close(units)
		j.dispatch(ctx, units)
		return nil
	})
	for w := range min(j.req.Parallelism, total) {
		g.Go(func() error {
			j.work(ctx, w, units, frames)
			return nil
		})
	}
	_ = g.Wait()

	if j.token.IsTriggered() || j.slot.terminal() {
		return nil
	}
	if got := int(j.captured.Load()); got != total {
		j.fail(fmt.Errorf("captured %d of %d frames", got, total))
		return nil
	}
	return frames
}

func (j *Job) dispatch(ctx context.Context, units chan<- int) {
	for idx := j.rng.Start; idx <= j.rng.End; idx++ {
		if j.token.IsTriggered() || j.slot.terminal() {
			return
		}
		select {
		case units <- idx:
		case <-ctx.Done():
			return
		}
	}
}

// work owns one session for its whole life: open, attach, navigate, capture, detach, close.
func (j *Job) work(ctx context.Context, id int, units <-chan int, frames []domain.Frame) {
	log := j.log.With("worker", id)

	sess, err := j.o.provider.Open(ctx, j.req.Composition)
	if err != nil {
		j.fail(&domain.InfraError{Kind: domain.KindSession, Op: "open session", Err: err})
		return
	}
	defer func() {
		if err := sess.Close(); err != nil {
			j.warn(ctx, fmt.Errorf("close session of worker %d: %w", id, err))
		}
	}()

	var current atomic.Int64
	current.Store(-1)
	att := bridge.Attach(sess, bridge.Options{
		Frame: func() (int, bool) {
			f := current.Load()
			return int(f), f >= 0
		},
		Symbolicator: j.o.symbolicator,
		OnError:      j.fail,
		Logger:       log,
	})
	defer att.Detach()

	if err := sess.Navigate(ctx, j.req.ServeURL); err != nil {
		att.Detach()
		j.fail(&domain.InfraError{Kind: domain.KindNavigation, Op: "navigate", Err: err})
		return
	}

	for idx := range units {
		if ctx.Err() != nil {
			return
		}
		current.Store(int64(idx))
		start := time.Now()
		data, err := j.captureFrame(ctx, sess, id, idx)
		current.Store(-1)
		if err != nil {
			// Exceptions already queued by the page explain the failure better
			// than the capture error, so they are delivered first.
			att.Detach()
			j.fail(captureError(idx, err))
			return
		}
		frames[idx-j.rng.Start] = domain.Frame{Index: idx, Data: data}
		j.captured.Add(1)
		log.Debug("frame captured", "frame", idx)

		if h := j.o.hooks.OnFrameCaptured; h != nil {
			h(ctx, &domain.FrameEvent{
				EventBase: j.event(domain.EventFrameCaptured),
				Worker:    id,
				Frame:     idx,
				Bytes:     len(data),
				Duration:  time.Since(start),
			})
		}
	}
}

func (j *Job) captureFrame(ctx context.Context, sess ports.Session, worker, idx int) ([]byte, error) {
	ctx, span := j.o.tracer.Start(ctx, "reel.capture_frame", trace.WithAttributes(
		attribute.String("render_id", j.id),
		attribute.Int("worker", worker),
		attribute.Int("frame", idx),
	))
	defer span.End()

	data, err := sess.CaptureFrame(ctx, idx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return data, nil
}

func captureError(idx int, err error) error {
	var infra *domain.InfraError
	if errors.As(err, &infra) {
		return err
	}
	kind := domain.KindCapture
	if errors.Is(err, domain.ErrSessionLost) {
		kind = domain.KindSession
	}
	return &domain.InfraError{Kind: kind, Op: "capture frame", Frame: &idx, Err: err}
}
