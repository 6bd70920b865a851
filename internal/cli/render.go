// Package cli wires the reel command line: configuration to orchestrator, Ctrl-C to
// cancellation, outcomes to exit codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/reel/internal/presentation/tui"
	"github.com/aretw0/reel/pkg/cancel"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/render"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Exit codes of the render command.
const (
	ExitSucceeded = 0
	ExitFailed    = 1
	ExitCancelled = 130
)

// ExitCode maps an outcome to the process exit status.
func ExitCode(out domain.Outcome) int {
	switch out.Kind {
	case domain.OutcomeSucceeded:
		return ExitSucceeded
	case domain.OutcomeCancelled:
		return ExitCancelled
	default:
		return ExitFailed
	}
}

// LoadComposition reads a composition from a YAML or JSON file.
func LoadComposition(path string) (domain.Composition, error) {
	var comp domain.Composition
	data, err := os.ReadFile(path)
	if err != nil {
		return comp, fmt.Errorf("failed to read composition: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return comp, fmt.Errorf("failed to parse composition %s: %w", path, err)
	}
	if err := mapstructure.Decode(raw, &comp); err != nil {
		return comp, fmt.Errorf("invalid composition %s: %w", path, err)
	}
	return comp, nil
}

// ParseFrameRange parses "start-end" or a single frame index. An empty string means
// every frame.
func ParseFrameRange(s string) (*domain.FrameRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	startStr, endStr, isRange := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return nil, fmt.Errorf("invalid frame range %q", s)
	}
	end := start
	if isRange {
		if end, err = strconv.Atoi(strings.TrimSpace(endStr)); err != nil {
			return nil, fmt.Errorf("invalid frame range %q", s)
		}
	}
	return &domain.FrameRange{Start: start, End: end}, nil
}

// RenderOptions controls a CLI render.
type RenderOptions struct {
	Request render.Request
	Out     io.Writer
	// JSON prints a machine-readable summary instead of the report.
	JSON bool
}

// Summary is the JSON form of an outcome.
type Summary struct {
	ID             string             `json:"id"`
	State          domain.RenderState `json:"state"`
	Artifact       *domain.Artifact   `json:"artifact,omitempty"`
	Error          string             `json:"error,omitempty"`
	Report         string             `json:"report,omitempty"`
	FramesCaptured int                `json:"frames_captured"`
	Warnings       []string           `json:"warnings,omitempty"`
	DurationMS     int64              `json:"duration_ms"`
}

// NewSummary builds the JSON form of out.
func NewSummary(out domain.Outcome) Summary {
	s := Summary{
		ID:             out.RenderID,
		State:          out.Kind.State(),
		Artifact:       out.Artifact,
		FramesCaptured: out.FramesCaptured,
		DurationMS:     out.Duration.Milliseconds(),
	}
	if out.Err != nil {
		s.Error = out.Err.Error()
		var symErr *domain.SymbolicateableError
		if errors.As(out.Err, &symErr) {
			s.Report = symErr.Report()
		}
	}
	for _, w := range out.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	return s
}

// RunRender renders with SIGINT/SIGTERM mapped to cancellation and prints the outcome.
func RunRender(ctx context.Context, orch *render.Orchestrator, opts RenderOptions) domain.Outcome {
	src, token := cancel.New()
	sm := cancel.OnInterrupt(src)
	defer sm.Stop()

	req := opts.Request
	if req.Cancel != nil {
		unsubscribe := req.Cancel.Subscribe(src.Cancel)
		defer unsubscribe()
	}
	req.Cancel = token

	out := orch.Render(ctx, req)

	w := opts.Out
	if w == nil {
		w = os.Stdout
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(NewSummary(out))
		return out
	}
	styled, width := terminal(w)
	_ = tui.PrintOutcome(w, out, styled, width)
	return out
}

// terminal reports whether w is a terminal and its width.
func terminal(w io.Writer) (bool, int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return true, width
}
