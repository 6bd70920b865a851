package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown for the terminal.
func NewRenderer(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}

// OutcomeMarkdown describes a finished render as a markdown document.
func OutcomeMarkdown(out domain.Outcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Render %s\n\n", out.Kind)
	if out.RenderID != "" {
		fmt.Fprintf(&sb, "- **id**: `%s`\n", out.RenderID)
	}
	fmt.Fprintf(&sb, "- **frames captured**: %d\n", out.FramesCaptured)
	fmt.Fprintf(&sb, "- **duration**: %s\n", out.Duration.Round(time.Millisecond))
	if out.Artifact != nil {
		fmt.Fprintf(&sb, "- **output**: `%s` (%s, %d frames)\n", out.Artifact.Location, out.Artifact.Format, out.Artifact.Frames)
	}
	if out.Err != nil {
		sb.WriteString("\n## Error\n\n```\n")
		sb.WriteString(errorReport(out.Err))
		sb.WriteString("\n```\n")
	}
	if len(out.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n\n")
		for _, w := range out.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}
	return sb.String()
}

// PrintOutcome writes the outcome to w. Styled output goes through the markdown
// renderer; plain output is a status line followed by the error report.
func PrintOutcome(w io.Writer, out domain.Outcome, styled bool, width int) error {
	if styled {
		rendered, err := NewRenderer(width)(OutcomeMarkdown(out))
		if err == nil {
			_, err = io.WriteString(w, rendered)
			return err
		}
	}

	o := termenv.NewOutput(w)
	status := o.String(out.String()).Bold()
	switch out.Kind {
	case domain.OutcomeSucceeded:
		status = status.Foreground(o.Color("2"))
	case domain.OutcomeCancelled:
		status = status.Foreground(o.Color("3"))
	default:
		status = status.Foreground(o.Color("1"))
	}
	if _, err := fmt.Fprintln(w, status); err != nil {
		return err
	}
	if out.Err != nil {
		var symErr *domain.SymbolicateableError
		if errors.As(out.Err, &symErr) {
			fmt.Fprintln(w, symErr.Report())
		}
	}
	for _, warn := range out.Warnings {
		fmt.Fprintln(w, o.String("warning: "+warn.Error()).Foreground(o.Color("3")))
	}
	return nil
}

func errorReport(err error) string {
	var symErr *domain.SymbolicateableError
	if errors.As(err, &symErr) {
		return symErr.Report()
	}
	return err.Error()
}
