package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// CaptureFunc scripts the behaviour of FakeSession.CaptureFrame.
type CaptureFunc func(ctx context.Context, s *FakeSession, index int) ([]byte, error)

// FakeBrowser is a scripted ports.SessionProvider for tests. It never launches a browser.
type FakeBrowser struct {
	// Capture overrides the default capture behaviour (returns "frame-<index>").
	Capture CaptureFunc
	// OpenErr makes every Open fail.
	OpenErr error
	// NavigateErr makes every Navigate fail.
	NavigateErr error

	mu       sync.Mutex
	sessions []*FakeSession
}

var _ ports.SessionProvider = (*FakeBrowser)(nil)

// Open implements ports.SessionProvider.
func (b *FakeBrowser) Open(ctx context.Context, comp domain.Composition) (ports.Session, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &FakeSession{
		ID:        len(b.sessions),
		browser:   b,
		listeners: make(map[int]func(domain.RawExceptionEvent)),
	}
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Sessions returns the sessions opened so far.
func (b *FakeBrowser) Sessions() []*FakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*FakeSession(nil), b.sessions...)
}

// CapturedFrames returns every frame index captured by any session, sorted.
func (b *FakeBrowser) CapturedFrames() []int {
	var out []int
	for _, s := range b.Sessions() {
		out = append(out, s.Captured()...)
	}
	sort.Ints(out)
	return out
}

// FakeSession is a scripted ports.Session.
type FakeSession struct {
	ID      int
	browser *FakeBrowser

	mu        sync.Mutex
	listeners map[int]func(domain.RawExceptionEvent)
	nextID    int
	captured  []int
	navigated string
	closes    int
}

var _ ports.Session = (*FakeSession)(nil)

// OnAsyncException implements ports.ExceptionSource.
func (s *FakeSession) OnAsyncException(fn func(domain.RawExceptionEvent)) ports.DetachFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Emit delivers ev to every current listener, synchronously.
func (s *FakeSession) Emit(ev domain.RawExceptionEvent) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(domain.RawExceptionEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Navigate implements ports.Session.
func (s *FakeSession) Navigate(ctx context.Context, url string) error {
	if s.browser.NavigateErr != nil {
		return s.browser.NavigateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = url
	return nil
}

// CaptureFrame implements ports.Session.
func (s *FakeSession) CaptureFrame(ctx context.Context, index int) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if s.browser.Capture != nil {
		data, err = s.browser.Capture(ctx, s, index)
	} else if err = ctx.Err(); err == nil {
		data = []byte(fmt.Sprintf("frame-%d", index))
	}
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.captured = append(s.captured, index)
	s.mu.Unlock()
	return data, nil
}

// Close implements ports.Session.
func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Captured returns the frames this session captured, in capture order.
func (s *FakeSession) Captured() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.captured...)
}

// Listeners returns the number of installed exception listeners.
func (s *FakeSession) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Navigated returns the last URL passed to Navigate.
func (s *FakeSession) Navigated() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigated
}

// Closes returns how many times Close was called.
func (s *FakeSession) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
