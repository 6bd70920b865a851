/*
Package bridge turns the asynchronous exceptions of a browser execution context into
render errors.

Attach installs a listener on a session's exception stream. Each event is cleaned up
(type prefix, duplicated textual stack, instrumentation marker), converted to either a
plain *domain.ExceptionError (no structured stack) or a symbolicated
*domain.SymbolicateableError, and forwarded to the caller's error sink in arrival order.
*/
package bridge

import (
	"log/slog"
	"sync"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/symbolicate"
)

// FrameFunc reports the output frame currently being produced, if any.
type FrameFunc func() (int, bool)

// Options configures an attachment.
type Options struct {
	// Frame is sampled when an event arrives. Nil means the errors are not frame-scoped.
	Frame FrameFunc

	// Symbolicator resolves structured frames. Nil leaves them unresolved.
	Symbolicator *symbolicate.Symbolicator

	// OnError receives every converted exception, in arrival order.
	OnError func(error)

	Logger *slog.Logger
}

type pending struct {
	event domain.RawExceptionEvent
	frame *int
}

// Attachment is a live exception listener on one session.
type Attachment struct {
	opts   Options
	detach ports.DetachFunc

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []pending
	closed bool

	done chan struct{}
	once sync.Once
}

// Attach starts listening to src. Events are delivered to opts.OnError by a dedicated
// goroutine until Detach is called.
func Attach(src ports.ExceptionSource, opts Options) *Attachment {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	a := &Attachment{
		opts: opts,
		done: make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.loop()
	a.detach = src.OnAsyncException(a.enqueue)
	return a
}

// Detach removes the listener, delivers the events already received and stops.
// It is idempotent and may be called even if no exception ever fired.
// It must not be called from within OnError.
func (a *Attachment) Detach() {
	a.once.Do(func() {
		if a.detach != nil {
			a.detach()
		}
		a.mu.Lock()
		a.closed = true
		a.cond.Broadcast()
		a.mu.Unlock()
		<-a.done
	})
}

func (a *Attachment) enqueue(ev domain.RawExceptionEvent) {
	var frame *int
	if a.opts.Frame != nil {
		if f, ok := a.opts.Frame(); ok {
			frame = &f
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.opts.Logger.Debug("exception after detach dropped", "description", ev.Description)
		return
	}
	a.queue = append(a.queue, pending{event: ev, frame: frame})
	a.cond.Signal()
}

func (a *Attachment) loop() {
	defer close(a.done)
	for {
		a.mu.Lock()
		for len(a.queue) == 0 && !a.closed {
			a.cond.Wait()
		}
		if len(a.queue) == 0 {
			a.mu.Unlock()
			return
		}
		next := a.queue[0]
		a.queue[0] = pending{}
		a.queue = a.queue[1:]
		a.mu.Unlock()

		err := ToError(next.event, next.frame, a.opts.Symbolicator)
		if a.opts.OnError != nil {
			a.opts.OnError(err)
		}
	}
}

// ToError converts one exception event into a render error.
//
// Without a structured call stack the result is a *domain.ExceptionError carrying the
// raw description as its stack text, and no symbolication is attempted. Otherwise the
// result is a *domain.SymbolicateableError with one frame per call frame, in order.
func ToError(ev domain.RawExceptionEvent, frame *int, sym *symbolicate.Symbolicator) error {
	cleaned := CleanMessage(ev.Description, ev.ClassName, len(ev.CallFrames))
	message, tail := splitAtMarker(cleaned)

	if !ev.HasStackTrace() {
		return &domain.ExceptionError{Message: message, Stack: ev.Description}
	}

	raw := make([]domain.UnsymbolicatedStackFrame, len(ev.CallFrames))
	for i, cf := range ev.CallFrames {
		raw[i] = domain.FrameFromCall(cf)
	}

	var delayRenderCall []domain.SymbolicatedStackFrame
	if tail != "" {
		delayRenderCall = sym.Symbolicate(ParseStack(tail))
	}

	return domain.NewSymbolicateableError(domain.SymbolicateableErrorParams{
		Message:         message,
		StackFrames:     sym.Symbolicate(raw),
		Frame:           frame,
		Name:            ev.ClassName,
		Stack:           ev.Description,
		DelayRenderCall: delayRenderCall,
	})
}
