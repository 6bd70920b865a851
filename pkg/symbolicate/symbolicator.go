// Package symbolicate resolves stack frames pointing into a served bundle back to
// their original source locations.
package symbolicate

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 1024

// Symbolicator maps unsymbolicated frames to original-source frames through a
// SourceMapResolver. It never fails: a frame that cannot be resolved keeps its
// unsymbolicated form. Safe for concurrent use.
type Symbolicator struct {
	resolver  ports.SourceMapResolver
	cache     *lru.Cache[domain.UnsymbolicatedStackFrame, *domain.OriginalLocation]
	cacheSize int
	logger    *slog.Logger
}

// Option configures the Symbolicator.
type Option func(*Symbolicator)

// WithCacheSize bounds the number of memoized frame resolutions.
func WithCacheSize(n int) Option {
	return func(s *Symbolicator) {
		s.cacheSize = n
	}
}

// WithLogger configures a logger for resolution failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Symbolicator) {
		s.logger = logger
	}
}

// New creates a Symbolicator. A nil resolver leaves every frame unresolved.
func New(resolver ports.SourceMapResolver, opts ...Option) *Symbolicator {
	s := &Symbolicator{
		resolver:  resolver,
		cacheSize: defaultCacheSize,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize <= 0 {
		s.cacheSize = defaultCacheSize
	}
	// lru.New only fails on a non-positive size.
	s.cache, _ = lru.New[domain.UnsymbolicatedStackFrame, *domain.OriginalLocation](s.cacheSize)
	return s
}

// Symbolicate resolves frames in order. The output has the same length and order as
// the input.
func (s *Symbolicator) Symbolicate(frames []domain.UnsymbolicatedStackFrame) []domain.SymbolicatedStackFrame {
	if frames == nil {
		return nil
	}
	out := make([]domain.SymbolicatedStackFrame, len(frames))
	for i, f := range frames {
		out[i] = domain.SymbolicatedStackFrame{
			UnsymbolicatedStackFrame: f,
			Original:                 s.resolve(f),
		}
	}
	return out
}

// Error returns a copy of err whose frames, including the delayRender call frames,
// are symbolicated.
func (s *Symbolicator) Error(err *domain.SymbolicateableError) *domain.SymbolicateableError {
	p := err.Params()
	p.StackFrames = s.resymbolicate(p.StackFrames)
	p.DelayRenderCall = s.resymbolicate(p.DelayRenderCall)
	return domain.NewSymbolicateableError(p)
}

func (s *Symbolicator) resymbolicate(frames []domain.SymbolicatedStackFrame) []domain.SymbolicatedStackFrame {
	if frames == nil {
		return nil
	}
	raw := make([]domain.UnsymbolicatedStackFrame, len(frames))
	for i, f := range frames {
		raw[i] = f.UnsymbolicatedStackFrame
	}
	return s.Symbolicate(raw)
}

func (s *Symbolicator) resolve(f domain.UnsymbolicatedStackFrame) *domain.OriginalLocation {
	if s == nil || s.resolver == nil || f.FileName == "" {
		return nil
	}
	if loc, ok := s.cache.Get(f); ok {
		return clone(loc)
	}

	loc, err := s.safeResolve(f)
	if err != nil {
		s.logger.Debug("frame resolution failed", "file", f.FileName, "line", f.LineNumber, "column", f.ColumnNumber, "err", err)
		return nil
	}
	if loc != nil && loc.FunctionName == "" {
		loc.FunctionName = f.FunctionName
	}
	s.cache.Add(f, clone(loc))
	return loc
}

func (s *Symbolicator) safeResolve(f domain.UnsymbolicatedStackFrame) (loc *domain.OriginalLocation, err error) {
	defer func() {
		if r := recover(); r != nil {
			loc, err = nil, fmt.Errorf("resolver panicked: %v", r)
		}
	}()
	return s.resolver.Resolve(f.FileName, f.LineNumber, f.ColumnNumber)
}

func clone(loc *domain.OriginalLocation) *domain.OriginalLocation {
	if loc == nil {
		return nil
	}
	c := *loc
	return &c
}
