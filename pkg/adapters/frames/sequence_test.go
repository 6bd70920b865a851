package frames_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/reel/pkg/adapters/frames"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(dir string) ports.AssembleInput {
	return ports.AssembleInput{
		Frames: []domain.Frame{
			{Index: 3, Data: []byte("three")},
			{Index: 4, Data: []byte("four")},
		},
		Composition: domain.Composition{ID: "intro"},
		Output:      dir,
	}
}

func TestSequence_WritesNumberedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	seq := frames.NewSequence("png")

	artifact, err := seq.Assemble(context.Background(), input(dir))
	require.NoError(t, err)
	assert.Equal(t, &domain.Artifact{Location: dir, Frames: 2, Format: "png"}, artifact)

	data, err := os.ReadFile(filepath.Join(dir, "frame-000003.png"))
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))
	assert.FileExists(t, filepath.Join(dir, "frame-000004.png"))
}

func TestSequence_FileName(t *testing.T) {
	assert.Equal(t, "frame-000012.jpeg", frames.NewSequence("jpeg").FileName(12))
	assert.Equal(t, "f7", (&frames.Sequence{Pattern: "f%d"}).FileName(7))
}

func TestSequence_CancelledKeepsWrittenFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-000001.png"), []byte("old"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := frames.NewSequence("png").Assemble(ctx, input(dir))

	assert.ErrorIs(t, err, context.Canceled)
	assert.FileExists(t, filepath.Join(dir, "frame-000001.png"))
}

func TestSequence_WriteFailureIsIOError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := frames.NewSequence("png").Assemble(context.Background(), input(file))

	var infra *domain.InfraError
	require.ErrorAs(t, err, &infra)
	assert.Equal(t, domain.KindIO, infra.Kind)
}
