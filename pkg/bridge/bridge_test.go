package bridge_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/reel/internal/testutils"
	"github.com/aretw0/reel/pkg/bridge"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/symbolicate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *testutils.FakeSession {
	t.Helper()
	b := &testutils.FakeBrowser{}
	s, err := b.Open(context.Background(), domain.Composition{ID: "test"})
	require.NoError(t, err)
	return s.(*testutils.FakeSession)
}

func boomEvent() domain.RawExceptionEvent {
	return domain.RawExceptionEvent{
		Description: "Error: boom\nat foo\nat bar",
		ClassName:   "Error",
		CallFrames: []domain.CallFrame{
			{URL: "http://localhost:3000/bundle.js", LineNumber: 0, ColumnNumber: 10, FunctionName: "foo"},
			{URL: "http://localhost:3000/bundle.js", LineNumber: 4, ColumnNumber: 2, FunctionName: "bar"},
		},
	}
}

func TestToError_WithStack(t *testing.T) {
	frame := 2
	err := bridge.ToError(boomEvent(), &frame, nil)

	var symErr *domain.SymbolicateableError
	require.ErrorAs(t, err, &symErr)
	assert.Equal(t, "boom", symErr.Message())
	assert.Equal(t, "Error", symErr.Name())
	assert.Equal(t, "Error: boom\nat foo\nat bar", symErr.Stack())
	got, ok := symErr.Frame()
	assert.True(t, ok)
	assert.Equal(t, 2, got)

	frames := symErr.StackFrames()
	require.Len(t, frames, 2)
	assert.Equal(t, "foo", frames[0].FunctionName)
	assert.Equal(t, 10, frames[0].ColumnNumber)
	assert.Equal(t, "bar", frames[1].FunctionName)
	assert.Equal(t, 4, frames[1].LineNumber)
}

func TestToError_WithoutStackIsNotSymbolicated(t *testing.T) {
	var resolved int32
	sym := symbolicate.New(ports.ResolverFunc(func(string, int, int) (*domain.OriginalLocation, error) {
		atomic.AddInt32(&resolved, 1)
		return &domain.OriginalLocation{Source: "x"}, nil
	}))

	ev := domain.RawExceptionEvent{Description: "Error: plain " + bridge.DelayRenderCallstackToken + " tail", ClassName: "Error"}
	err := bridge.ToError(ev, nil, sym)

	var exErr *domain.ExceptionError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "plain ", exErr.Message)
	assert.Equal(t, ev.Description, exErr.Stack)
	assert.Zero(t, atomic.LoadInt32(&resolved), "degraded path must not symbolicate")
}

func TestToError_DelayRenderCall(t *testing.T) {
	sym := symbolicate.New(ports.ResolverFunc(func(file string, line, column int) (*domain.OriginalLocation, error) {
		return &domain.OriginalLocation{Source: "src/Video.tsx", Line: line + 1, Column: column}, nil
	}))
	ev := domain.RawExceptionEvent{
		Description: "Error: A delayRender() was called but not cleared after 28000ms. " +
			bridge.DelayRenderCallstackToken + "\n    at loadFont (http://localhost:3000/bundle.js:8:3)\n    at timeout (http://localhost:3000/bundle.js:1:1)",
		ClassName: "Error",
		CallFrames: []domain.CallFrame{
			{URL: "http://localhost:3000/bundle.js", LineNumber: 0, ColumnNumber: 0, FunctionName: "timeout"},
		},
	}

	err := bridge.ToError(ev, nil, sym)

	var symErr *domain.SymbolicateableError
	require.ErrorAs(t, err, &symErr)
	assert.Equal(t, "A delayRender() was called but not cleared after 28000ms. ", symErr.Message())
	_, ok := symErr.Frame()
	assert.False(t, ok, "errors outside a frame carry no frame index")
	delay := symErr.DelayRenderCall()
	require.Len(t, delay, 1)
	assert.Equal(t, "loadFont", delay[0].FunctionName)
	require.NotNil(t, delay[0].Original)
	assert.Equal(t, 8, delay[0].Original.Line)
	assert.True(t, symErr.StackFrames()[0].Resolved())
}

func TestAttach_ForwardsInArrivalOrder(t *testing.T) {
	s := newSession(t)

	var mu sync.Mutex
	var got []string
	var frame int32 = 7
	a := bridge.Attach(s, bridge.Options{
		Frame: func() (int, bool) { return int(atomic.LoadInt32(&frame)), true },
		OnError: func(err error) {
			time.Sleep(time.Millisecond) // slow sink: events must queue, not coalesce
			mu.Lock()
			got = append(got, err.Error())
			mu.Unlock()
		},
	})

	for i := 0; i < 20; i++ {
		s.Emit(domain.RawExceptionEvent{Description: fmt.Sprintf("Error: e%d", i), ClassName: "Error"})
	}
	a.Detach()

	require.Len(t, got, 20)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("e%d", i), msg)
	}
}

func TestAttach_SamplesFrameOnArrival(t *testing.T) {
	s := newSession(t)
	var frame int32 = 1
	errs := make(chan error, 1)
	a := bridge.Attach(s, bridge.Options{
		Frame:   func() (int, bool) { return int(atomic.LoadInt32(&frame)), true },
		OnError: func(err error) { errs <- err },
	})
	defer a.Detach()

	s.Emit(boomEvent())
	atomic.StoreInt32(&frame, 3)

	var symErr *domain.SymbolicateableError
	require.ErrorAs(t, <-errs, &symErr)
	f, _ := symErr.Frame()
	assert.Equal(t, 1, f)
}

func TestAttach_DetachIsIdempotent(t *testing.T) {
	s := newSession(t)
	var calls int32
	a := bridge.Attach(s, bridge.Options{OnError: func(error) { atomic.AddInt32(&calls, 1) }})
	assert.Equal(t, 1, s.Listeners())

	a.Detach()
	a.Detach()
	assert.Equal(t, 0, s.Listeners())

	s.Emit(boomEvent())
	assert.Zero(t, atomic.LoadInt32(&calls), "no delivery after detach")
}
