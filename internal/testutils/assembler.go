package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// FakeAssembler records the frames it is handed.
type FakeAssembler struct {
	// Err makes Assemble fail with an I/O infrastructure error.
	Err error
	// Hook runs before assembling, e.g. to block until a test releases it.
	Hook func(ctx context.Context)

	mu     sync.Mutex
	frames []domain.Frame
	calls  int
}

var _ ports.Assembler = (*FakeAssembler)(nil)

// Assemble implements ports.Assembler.
func (a *FakeAssembler) Assemble(ctx context.Context, in ports.AssembleInput) (*domain.Artifact, error) {
	if a.Hook != nil {
		a.Hook(ctx)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.Err != nil {
		return nil, &domain.InfraError{Kind: domain.KindIO, Op: "assemble", Err: a.Err}
	}
	a.frames = append([]domain.Frame(nil), in.Frames...)
	location := in.Output
	if location == "" {
		location = "memory://" + in.Composition.ID
	}
	return &domain.Artifact{Location: location, Frames: len(in.Frames), Format: "raw"}, nil
}

// Frames returns the frames of the last successful Assemble call.
func (a *FakeAssembler) Frames() []domain.Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Frame(nil), a.frames...)
}

// Calls returns how many times Assemble was called.
func (a *FakeAssembler) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
