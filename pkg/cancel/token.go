package cancel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/reel/pkg/domain"
)

// PanicHandler receives the recovered value of a panicking subscriber.
type PanicHandler func(err error)

type subscriber struct {
	id uint64
	fn func()
}

// Token is the observe handle of a cancellation signal.
type Token struct {
	mu        sync.Mutex
	triggered bool
	subs      []subscriber
	nextID    uint64
	done      chan struct{}
	settled   chan struct{}
	onPanic   PanicHandler
	timer     *time.Timer
}

// Source is the trigger handle of a cancellation signal.
type Source struct {
	token *Token
}

// New creates a fresh, untriggered cancellation signal.
func New() (*Source, *Token) {
	t := &Token{done: make(chan struct{}), settled: make(chan struct{})}
	return &Source{token: t}, t
}

// Token returns the observe handle paired with this source.
func (s *Source) Token() *Token {
	return s.token
}

// Cancel triggers the token. Calling it more than once is a no-op.
// Subscribers run synchronously on the calling goroutine, in subscription order.
func (s *Source) Cancel() {
	s.token.trigger()
}

// CancelAfter triggers the token once d has elapsed, unless it already triggered.
// A timeout is observably identical to an explicit Cancel.
func (s *Source) CancelAfter(d time.Duration) {
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.triggered {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, t.trigger)
}

// StopTimer disarms a pending CancelAfter without triggering the token.
// It reports whether a timer was pending.
func (s *Source) StopTimer() bool {
	t := s.token
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil {
		return false
	}
	stopped := t.timer.Stop()
	t.timer = nil
	return stopped
}

// SetPanicHandler installs the handler receiving panics raised by subscribers.
// Without a handler, such panics are recovered and discarded.
func (t *Token) SetPanicHandler(h PanicHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPanic = h
}

// IsTriggered reports whether the token has been triggered.
func (t *Token) IsTriggered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.triggered
}

// Done returns a channel closed when the token triggers.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Settled returns a channel closed once every subscriber registered before the
// trigger has returned.
func (t *Token) Settled() <-chan struct{} {
	return t.settled
}

// Subscribe registers fn to run once when the token triggers. If the token already
// triggered, fn runs immediately on the calling goroutine. The returned function
// removes the subscription; it is safe to call multiple times.
func (t *Token) Subscribe(fn func()) (unsubscribe func()) {
	t.mu.Lock()
	if t.triggered {
		h := t.onPanic
		t.mu.Unlock()
		invoke(fn, h)
		return func() {}
	}
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// Context returns a context cancelled with cause domain.ErrCancelled when the token
// triggers, or when parent is done. The returned stop function releases the subscription.
func (t *Token) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	unsubscribe := t.Subscribe(func() { cancel(domain.ErrCancelled) })
	return ctx, func() {
		unsubscribe()
		cancel(context.Canceled)
	}
}

func (t *Token) trigger() {
	t.mu.Lock()
	if t.triggered {
		t.mu.Unlock()
		return
	}
	t.triggered = true
	subs := t.subs
	t.subs = nil
	h := t.onPanic
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	close(t.done)
	t.mu.Unlock()

	for _, s := range subs {
		invoke(s.fn, h)
	}
	close(t.settled)
}

func invoke(fn func(), h PanicHandler) {
	defer func() {
		if r := recover(); r != nil && h != nil {
			h(fmt.Errorf("cancellation subscriber panicked: %v", r))
		}
	}()
	fn()
}
