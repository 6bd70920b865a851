package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/testutils"
	"github.com/aretw0/reel/pkg/cancel"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var comp = domain.Composition{ID: "intro", Width: 320, Height: 180, FPS: 30, DurationInFrames: 3}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, cli.ExitCode(domain.Succeeded(nil)))
	assert.Equal(t, 1, cli.ExitCode(domain.Failed(assert.AnError)))
	assert.Equal(t, 130, cli.ExitCode(domain.Cancelled()))
}

func TestParseFrameRange(t *testing.T) {
	tests := []struct {
		in      string
		want    *domain.FrameRange
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "4", want: &domain.FrameRange{Start: 4, End: 4}},
		{in: "10-20", want: &domain.FrameRange{Start: 10, End: 20}},
		{in: " 1 - 2 ", want: &domain.FrameRange{Start: 1, End: 2}},
		{in: "a-2", wantErr: true},
		{in: "1-b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cli.ParseFrameRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadComposition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: intro
width: 1920
height: 1080
fps: 30
duration_in_frames: 90
props:
  title: Hello
`), 0o644))

	got, err := cli.LoadComposition(path)
	require.NoError(t, err)
	assert.Equal(t, "intro", got.ID)
	assert.Equal(t, 1920, got.Width)
	assert.Equal(t, 30.0, got.FPS)
	assert.Equal(t, 90, got.DurationInFrames)
	assert.Equal(t, "Hello", got.Props["title"])

	_, err = cli.LoadComposition(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunRender_PrintsOutcome(t *testing.T) {
	orch := render.New(&testutils.FakeBrowser{}, &testutils.FakeAssembler{})
	var buf bytes.Buffer

	out := cli.RunRender(context.Background(), orch, cli.RenderOptions{
		Request: render.Request{Composition: comp, ServeURL: "http://localhost:3000"},
		Out:     &buf,
	})

	require.Equal(t, domain.OutcomeSucceeded, out.Kind, out.String())
	assert.Contains(t, buf.String(), "succeeded")
}

func TestRunRender_JSONReportsFailure(t *testing.T) {
	browser := &testutils.FakeBrowser{
		Capture: func(_ context.Context, s *testutils.FakeSession, index int) ([]byte, error) {
			if index == 1 {
				s.Emit(domain.RawExceptionEvent{
					Description: "Error: boom\n    at render (http://localhost:3000/bundle.js:1:10)",
					ClassName:   "Error",
					CallFrames:  []domain.CallFrame{{URL: "http://localhost:3000/bundle.js", ColumnNumber: 9, FunctionName: "render"}},
				})
			}
			return []byte("x"), nil
		},
	}
	orch := render.New(browser, &testutils.FakeAssembler{})
	var buf bytes.Buffer

	out := cli.RunRender(context.Background(), orch, cli.RenderOptions{
		Request: render.Request{Composition: comp, ServeURL: "http://localhost:3000"},
		Out:     &buf,
		JSON:    true,
	})
	require.Equal(t, domain.OutcomeFailed, out.Kind)
	assert.Equal(t, cli.ExitFailed, cli.ExitCode(out))

	var summary cli.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary), buf.String())
	assert.Equal(t, domain.StateFailed, summary.State)
	assert.Contains(t, summary.Error, "boom")
	assert.Contains(t, summary.Report, "bundle.js")
}

func TestRunRender_CallerTokenCancels(t *testing.T) {
	src, token := cancel.New()
	browser := &testutils.FakeBrowser{
		Capture: func(ctx context.Context, _ *testutils.FakeSession, _ int) ([]byte, error) {
			src.Cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	orch := render.New(browser, &testutils.FakeAssembler{})

	out := cli.RunRender(context.Background(), orch, cli.RenderOptions{
		Request: render.Request{Composition: comp, ServeURL: "http://localhost:3000", Cancel: token},
		Out:     &bytes.Buffer{},
	})
	assert.Equal(t, domain.OutcomeCancelled, out.Kind)
	assert.Equal(t, cli.ExitCancelled, cli.ExitCode(out))
}
