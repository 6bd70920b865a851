package ports

import "github.com/aretw0/reel/pkg/domain"

// SourceMapResolver maps a position in a served (minified) file back to the original source.
// It returns a nil location (and possibly an error) when resolution is not possible.
type SourceMapResolver interface {
	Resolve(file string, line, column int) (*domain.OriginalLocation, error)
}

// ResolverFunc adapts a function to SourceMapResolver.
type ResolverFunc func(file string, line, column int) (*domain.OriginalLocation, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(file string, line, column int) (*domain.OriginalLocation, error) {
	return f(file, line, column)
}
