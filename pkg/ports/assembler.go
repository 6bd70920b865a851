package ports

import (
	"context"

	"github.com/aretw0/reel/pkg/domain"
)

// AssembleInput is what a render hands to the output assembler.
type AssembleInput struct {
	// Frames are ordered by frame index.
	Frames      []domain.Frame
	Composition domain.Composition
	// Output is the caller-chosen output location.
	Output string
}

// Assembler turns the ordered captured frames into an output artifact.
// Write failures are reported as *domain.InfraError with Kind domain.KindIO.
type Assembler interface {
	Assemble(ctx context.Context, in AssembleInput) (*domain.Artifact, error)
}
