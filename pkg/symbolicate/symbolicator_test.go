package symbolicate_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/symbolicate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(file string, line int, fn string) domain.UnsymbolicatedStackFrame {
	return domain.UnsymbolicatedStackFrame{FileName: file, LineNumber: line, ColumnNumber: 7, FunctionName: fn}
}

func TestSymbolicate_PreservesOrderAndFallsBackPerFrame(t *testing.T) {
	resolver := ports.ResolverFunc(func(file string, line, column int) (*domain.OriginalLocation, error) {
		if file == "broken.js" {
			return nil, errors.New("no map")
		}
		return &domain.OriginalLocation{Source: "src/" + file, Line: line + 1, Column: column}, nil
	})
	s := symbolicate.New(resolver)

	in := []domain.UnsymbolicatedStackFrame{
		frame("a.js", 1, "inner"),
		frame("broken.js", 2, "middle"),
		frame("c.js", 3, "outer"),
	}
	out := s.Symbolicate(in)

	require.Len(t, out, 3)
	for i := range in {
		assert.Equal(t, in[i], out[i].UnsymbolicatedStackFrame, "frame %d must keep its position", i)
	}
	require.NotNil(t, out[0].Original)
	assert.Equal(t, "src/a.js", out[0].Original.Source)
	assert.Equal(t, "inner", out[0].Original.FunctionName, "missing original name falls back to the bundle name")
	assert.Nil(t, out[1].Original, "unresolvable frame keeps its unsymbolicated form")
	require.NotNil(t, out[2].Original)
	assert.Equal(t, 4, out[2].Original.Line)
}

func TestSymbolicate_CachesResolutions(t *testing.T) {
	var calls int32
	resolver := ports.ResolverFunc(func(file string, line, column int) (*domain.OriginalLocation, error) {
		atomic.AddInt32(&calls, 1)
		return &domain.OriginalLocation{Source: "src/Video.tsx", Line: 10}, nil
	})
	s := symbolicate.New(resolver)
	frames := []domain.UnsymbolicatedStackFrame{frame("bundle.js", 1, "f"), frame("bundle.js", 1, "f")}

	first := s.Symbolicate(frames)
	second := s.Symbolicate(frames)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second, "symbolication is idempotent")

	first[0].Original.Line = 99
	third := s.Symbolicate(frames)
	assert.Equal(t, 10, third[0].Original.Line, "cached locations must not be shared with callers")
}

func TestSymbolicate_DoesNotCacheErrors(t *testing.T) {
	var calls int32
	resolver := ports.ResolverFunc(func(file string, line, column int) (*domain.OriginalLocation, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("transient")
		}
		return &domain.OriginalLocation{Source: "src/Video.tsx", Line: 3}, nil
	})
	s := symbolicate.New(resolver)
	frames := []domain.UnsymbolicatedStackFrame{frame("bundle.js", 1, "f")}

	assert.Nil(t, s.Symbolicate(frames)[0].Original)
	assert.NotNil(t, s.Symbolicate(frames)[0].Original)
}

func TestSymbolicate_PanickingResolver(t *testing.T) {
	resolver := ports.ResolverFunc(func(string, int, int) (*domain.OriginalLocation, error) {
		panic("corrupt map")
	})
	s := symbolicate.New(resolver)

	var out []domain.SymbolicatedStackFrame
	assert.NotPanics(t, func() {
		out = s.Symbolicate([]domain.UnsymbolicatedStackFrame{frame("bundle.js", 1, "f")})
	})
	require.Len(t, out, 1)
	assert.False(t, out[0].Resolved())
}

func TestSymbolicate_NilResolver(t *testing.T) {
	s := symbolicate.New(nil)
	out := s.Symbolicate([]domain.UnsymbolicatedStackFrame{frame("bundle.js", 1, "f")})
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Original)
	assert.Nil(t, s.Symbolicate(nil))
}

func TestSymbolicator_Error(t *testing.T) {
	resolver := ports.ResolverFunc(func(file string, line, column int) (*domain.OriginalLocation, error) {
		return &domain.OriginalLocation{Source: "src/" + file, Line: line + 1, Column: column}, nil
	})
	s := symbolicate.New(resolver)
	frameIdx := 2
	raw := domain.NewSymbolicateableError(domain.SymbolicateableErrorParams{
		Message:         "boom",
		Name:            "Error",
		Frame:           &frameIdx,
		StackFrames:     []domain.SymbolicatedStackFrame{domain.Unresolved(frame("a.js", 0, "f"))},
		DelayRenderCall: []domain.SymbolicatedStackFrame{domain.Unresolved(frame("b.js", 4, "g"))},
	})

	out := s.Error(raw)

	assert.Equal(t, "boom", out.Message())
	f, ok := out.Frame()
	assert.True(t, ok)
	assert.Equal(t, 2, f)
	require.Len(t, out.StackFrames(), 1)
	assert.True(t, out.StackFrames()[0].Resolved())
	require.Len(t, out.DelayRenderCall(), 1)
	assert.Equal(t, "src/b.js", out.DelayRenderCall()[0].Original.Source)
	assert.False(t, raw.StackFrames()[0].Resolved(), "the input error is left untouched")
}
