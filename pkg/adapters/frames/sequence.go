// Package frames assembles a render into a numbered image sequence on disk.
package frames

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// DefaultPattern names frame files; it receives the frame index.
const DefaultPattern = "frame-%06d"

// Sequence implements ports.Assembler by writing every frame to its own file in the
// output directory. Files written before a cancellation are kept.
type Sequence struct {
	// Ext is the file extension without the dot, e.g. "png".
	Ext     string
	Pattern string
}

var _ ports.Assembler = (*Sequence)(nil)

// NewSequence creates an image sequence writer for files with extension ext.
func NewSequence(ext string) *Sequence {
	return &Sequence{Ext: ext, Pattern: DefaultPattern}
}

// Assemble implements ports.Assembler. in.Output is the target directory.
func (s *Sequence) Assemble(ctx context.Context, in ports.AssembleInput) (*domain.Artifact, error) {
	if in.Output == "" {
		return nil, ioError(errors.New("output directory is required"))
	}
	if err := os.MkdirAll(in.Output, 0o755); err != nil {
		return nil, ioError(err)
	}

	for _, f := range in.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(in.Output, s.FileName(f.Index))
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return nil, ioError(fmt.Errorf("frame %d: %w", f.Index, err))
		}
	}

	return &domain.Artifact{Location: in.Output, Frames: len(in.Frames), Format: s.Ext}, nil
}

// FileName returns the file name of frame index.
func (s *Sequence) FileName(index int) string {
	pattern := s.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	name := fmt.Sprintf(pattern, index)
	if s.Ext != "" {
		name += "." + s.Ext
	}
	return name
}

func ioError(err error) error {
	return &domain.InfraError{Kind: domain.KindIO, Op: "write image sequence", Err: err}
}
