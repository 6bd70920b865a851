package ports

import (
	"context"

	"github.com/aretw0/reel/pkg/domain"
)

// DetachFunc removes a previously installed listener. It must be idempotent.
type DetachFunc func()

// ExceptionSource is a live stream of asynchronous exceptions raised inside a
// browser execution context.
type ExceptionSource interface {
	// OnAsyncException registers fn for every exception event, in arrival order.
	OnAsyncException(fn func(domain.RawExceptionEvent)) DetachFunc
}

// Session is one isolated browser execution context, owned by a single worker.
type Session interface {
	ExceptionSource

	// Navigate loads the served composition bundle.
	Navigate(ctx context.Context, url string) error

	// CaptureFrame seeks the composition to index and returns the encoded image.
	CaptureFrame(ctx context.Context, index int) ([]byte, error)

	// Close releases the session. It is called exactly once per opened session.
	Close() error
}

// SessionProvider opens browser sessions.
type SessionProvider interface {
	Open(ctx context.Context, comp domain.Composition) (Session, error)
}
