package tui_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aretw0/reel/internal/presentation/tui"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedOutcome() domain.Outcome {
	frame := 4
	err := domain.NewSymbolicateableError(domain.SymbolicateableErrorParams{
		Message: "boom",
		Name:    "Error",
		Frame:   &frame,
		StackFrames: []domain.SymbolicatedStackFrame{{
			UnsymbolicatedStackFrame: domain.UnsymbolicatedStackFrame{FileName: "bundle.js", LineNumber: 0, ColumnNumber: 10, FunctionName: "render"},
			Original:                 &domain.OriginalLocation{Source: "src/Title.tsx", Line: 12, Column: 3},
		}},
	})
	out := domain.Failed(err)
	out.RenderID = "r1"
	out.Warnings = []error{errors.New("subscriber panicked")}
	return out
}

func TestOutcomeMarkdown_Failed(t *testing.T) {
	md := tui.OutcomeMarkdown(failedOutcome())
	assert.Contains(t, md, "# Render failed")
	assert.Contains(t, md, "`r1`")
	assert.Contains(t, md, "src/Title.tsx")
	assert.Contains(t, md, "## Warnings")
	assert.Contains(t, md, "subscriber panicked")
}

func TestOutcomeMarkdown_Succeeded(t *testing.T) {
	out := domain.Succeeded(&domain.Artifact{Location: "out/intro", Frames: 3, Format: "png"})
	md := tui.OutcomeMarkdown(out)
	assert.Contains(t, md, "# Render succeeded")
	assert.Contains(t, md, "`out/intro`")
	assert.NotContains(t, md, "## Error")
}

func TestPrintOutcome_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tui.PrintOutcome(&buf, failedOutcome(), false, 80))
	out := buf.String()
	assert.Contains(t, out, "failed: Error: boom")
	assert.Contains(t, out, "(at frame 4)")
	assert.Contains(t, out, "src/Title.tsx")
	assert.Contains(t, out, "warning: subscriber panicked")
}

func TestPrintOutcome_Styled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tui.PrintOutcome(&buf, domain.Cancelled(), true, 80))
	assert.Contains(t, buf.String(), "cancelled")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "1.2.3")
}
