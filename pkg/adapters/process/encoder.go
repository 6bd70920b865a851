// Package process assembles frames by piping them into an external encoder process.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// Encoder implements ports.Assembler with an external command.
// Frames are written to the command's stdin in index order. A cancelled render kills
// the command; whatever it already wrote is left in place.
type Encoder struct {
	cfg     EncoderConfig
	baseDir string
	logger  *slog.Logger
}

var _ ports.Assembler = (*Encoder)(nil)

// Option configures the encoder.
type Option func(*Encoder)

// WithBaseDir sets the working directory of the encoder process.
func WithBaseDir(dir string) Option {
	return func(e *Encoder) {
		e.baseDir = dir
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		e.logger = logger
	}
}

// NewEncoder creates an encoder from cfg.
func NewEncoder(cfg EncoderConfig, opts ...Option) *Encoder {
	e := &Encoder{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lookup returns the encoder registered under name.
func Lookup(encoders map[string]EncoderConfig, name string, opts ...Option) (*Encoder, error) {
	cfg, ok := encoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: encoder not registered: %s", domain.ErrInvalidRequest, name)
	}
	return NewEncoder(cfg, opts...), nil
}

// Format is the container format the encoder produces, e.g. "mp4".
func (e *Encoder) Format() string {
	return e.cfg.Format
}

// Assemble implements ports.Assembler.
func (e *Encoder) Assemble(ctx context.Context, in ports.AssembleInput) (*domain.Artifact, error) {
	if in.Output == "" {
		return nil, ioError("encode", errors.New("output location is required"))
	}

	args := expandArgs(e.cfg.Args, in)
	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	cmd.Dir = e.baseDir

	// Composition facts are also exported, so wrapper scripts need no argument parsing.
	env := []string{
		"REEL_OUTPUT=" + in.Output,
		"REEL_COMPOSITION=" + in.Composition.ID,
		"REEL_FPS=" + formatFPS(in.Composition.FPS),
		"REEL_WIDTH=" + strconv.Itoa(in.Composition.Width),
		"REEL_HEIGHT=" + strconv.Itoa(in.Composition.Height),
		"REEL_FRAMES=" + strconv.Itoa(len(in.Frames)),
	}
	for k, v := range e.cfg.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, ioError("encode", err)
	}

	e.logger.Debug("starting encoder", "command", e.cfg.Command, "args", args)
	if err := cmd.Start(); err != nil {
		return nil, ioError("start encoder", err)
	}

	writeErr := writeFrames(stdin, in.Frames)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		return nil, ioError("encode", fmt.Errorf("%s failed: %w: %s", e.cfg.Command, waitErr, strings.TrimSpace(stderr.String())))
	}
	if err := errors.Join(writeErr, closeErr); err != nil {
		return nil, ioError("write frames", err)
	}

	return &domain.Artifact{Location: in.Output, Frames: len(in.Frames), Format: e.cfg.Format}, nil
}

func writeFrames(w io.Writer, frames []domain.Frame) error {
	for _, f := range frames {
		if _, err := w.Write(f.Data); err != nil {
			return fmt.Errorf("frame %d: %w", f.Index, err)
		}
	}
	return nil
}

func expandArgs(args []string, in ports.AssembleInput) []string {
	r := strings.NewReplacer(
		"{output}", in.Output,
		"{fps}", formatFPS(in.Composition.FPS),
		"{width}", strconv.Itoa(in.Composition.Width),
		"{height}", strconv.Itoa(in.Composition.Height),
		"{frames}", strconv.Itoa(len(in.Frames)),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func ioError(op string, err error) error {
	return &domain.InfraError{Kind: domain.KindIO, Op: op, Err: err}
}
