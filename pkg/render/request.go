package render

import (
	"fmt"
	"time"

	"github.com/aretw0/reel/pkg/cancel"
	"github.com/aretw0/reel/pkg/domain"
)

// Request describes one render invocation.
type Request struct {
	Composition domain.Composition

	// ServeURL is the page every session navigates to before capturing.
	ServeURL string

	// Frames restricts the render to a sub-range. Nil renders every frame.
	Frames *domain.FrameRange

	// Parallelism is the number of concurrent sessions. Zero uses the orchestrator default.
	Parallelism int

	// Timeout cancels the render once elapsed. Zero disables it.
	Timeout time.Duration

	// Output is the artifact location handed to the assembler. It is also the lock key.
	Output string

	// Cancel links a caller-owned token. Triggering it cancels the render.
	Cancel *cancel.Token
}

func (r Request) validate() error {
	if err := r.Composition.Validate(); err != nil {
		return err
	}
	if r.ServeURL == "" {
		return fmt.Errorf("%w: serve url is required", domain.ErrInvalidRequest)
	}
	if r.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", domain.ErrInvalidRequest)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", domain.ErrInvalidRequest)
	}
	if r.Frames != nil {
		return r.Frames.Validate(r.Composition)
	}
	return nil
}

func (r Request) frameRange() domain.FrameRange {
	if r.Frames != nil {
		return *r.Frames
	}
	return domain.FullRange(r.Composition)
}
