package chrome

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	readyFunction   = `typeof window.reel_setFrame === "function"`
	readyExpression = `window.reel_renderReady === true`
	// The flag is cleared before seeking so a stale true from the previous frame
	// is never mistaken for the new one.
	seekExpression = `window.reel_renderReady = false; window.reel_setFrame(%d)`

	pollInterval = 10 * time.Millisecond
)

// Session is one browser tab.
type Session struct {
	ctx      context.Context
	closeTab context.CancelFunc
	cfg      Config
	logger   *slog.Logger

	lost atomic.Bool

	mu        sync.Mutex
	listeners map[uint64]func(domain.RawExceptionEvent)
	nextID    uint64
	closed    bool
}

var _ ports.Session = (*Session)(nil)

func newSession(ctx context.Context, closeTab context.CancelFunc, cfg Config, logger *slog.Logger) *Session {
	return &Session{
		ctx:       ctx,
		closeTab:  closeTab,
		cfg:       cfg,
		logger:    logger,
		listeners: make(map[uint64]func(domain.RawExceptionEvent)),
	}
}

// OnAsyncException implements ports.ExceptionSource.
// chromedp listeners cannot be removed, so the session keeps its own registry.
func (s *Session) OnAsyncException(fn func(domain.RawExceptionEvent)) ports.DetachFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// handleEvent runs on the chromedp event loop and must not block.
func (s *Session) handleEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventExceptionThrown:
		s.emit(ExceptionEvent(e.ExceptionDetails))
	case *inspector.EventTargetCrashed:
		s.lost.Store(true)
		s.logger.Warn("browser tab crashed")
	case *inspector.EventDetached:
		s.lost.Store(true)
		s.logger.Warn("browser tab detached", "reason", e.Reason)
	}
}

func (s *Session) emit(ev domain.RawExceptionEvent) {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(domain.RawExceptionEvent), len(ids))
	for i, id := range ids {
		fns[i] = s.listeners[id]
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Navigate loads url and waits until the page exposes the frame protocol.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.alive(); err != nil {
		return err
	}
	return s.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errorText, _, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("page load error %s", errorText)
			}
			return nil
		}),
		waitFor(readyFunction, s.cfg.ReadyTimeout),
	)
}

// CaptureFrame seeks the composition to index, waits for the frame to be painted
// and takes a screenshot.
func (s *Session) CaptureFrame(ctx context.Context, index int) ([]byte, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.run(ctx,
		chromedp.Evaluate(fmt.Sprintf(seekExpression, index), nil),
		waitFor(readyExpression, s.cfg.ReadyTimeout),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, err = screenshot(s.cfg).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// waitFor evaluates expression in the page until it yields true. Evaluation
// errors while a document is being replaced count as not ready.
func waitFor(expression string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		deadline := time.Now().Add(timeout)
		for {
			res, exc, err := runtime.Evaluate(expression).WithReturnByValue(true).Do(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil && exc == nil && res != nil && string(res.Value) == "true" {
				return nil
			}
			if time.Now().After(deadline) {
				if err != nil {
					return fmt.Errorf("page not ready after %s (%s): %w", timeout, expression, err)
				}
				return fmt.Errorf("page not ready after %s: %s", timeout, expression)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	})
}

// Close closes the tab. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.closeTab()
	return nil
}

func (s *Session) alive() error {
	if s.lost.Load() || s.ctx.Err() != nil {
		return fmt.Errorf("%w: browser tab is gone", domain.ErrSessionLost)
	}
	return nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	err := runWithin(ctx, s.ctx, actions...)
	if err != nil && ctx.Err() == nil && s.alive() != nil {
		return fmt.Errorf("%w: %v", domain.ErrSessionLost, err)
	}
	return err
}

func screenshot(cfg Config) *page.CaptureScreenshotParams {
	params := page.CaptureScreenshot().WithFromSurface(true).WithOptimizeForSpeed(true)
	if cfg.Format == "jpeg" {
		params = params.WithFormat(page.CaptureScreenshotFormatJpeg)
		if cfg.Quality > 0 {
			params = params.WithQuality(int64(cfg.Quality))
		}
		return params
	}
	return params.WithFormat(page.CaptureScreenshotFormatPng)
}

// ExceptionEvent converts a CDP exception into the browser-neutral event handled by
// the exception bridge. A missing stack trace yields nil call frames.
func ExceptionEvent(details *runtime.ExceptionDetails) domain.RawExceptionEvent {
	if details == nil {
		return domain.RawExceptionEvent{}
	}
	ev := domain.RawExceptionEvent{Description: details.Text}
	if exc := details.Exception; exc != nil {
		ev.ClassName = exc.ClassName
		if exc.Description != "" {
			ev.Description = exc.Description
		}
	}
	if details.StackTrace != nil {
		ev.CallFrames = make([]domain.CallFrame, 0, len(details.StackTrace.CallFrames))
		for _, cf := range details.StackTrace.CallFrames {
			ev.CallFrames = append(ev.CallFrames, domain.CallFrame{
				URL:          cf.URL,
				LineNumber:   int(cf.LineNumber),
				ColumnNumber: int(cf.ColumnNumber),
				FunctionName: cf.FunctionName,
			})
		}
	}
	return ev
}
