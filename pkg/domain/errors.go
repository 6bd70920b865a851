package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidRequest is returned when a render request cannot be started.
var ErrInvalidRequest = errors.New("invalid render request")

// ErrSessionLost is returned when a browser session disappears mid-render.
var ErrSessionLost = errors.New("browser session lost")

// ErrAssembly is returned when the output assembler fails to write the artifact.
var ErrAssembly = errors.New("output assembly failed")

// ErrRenderNotFound is returned when a render ID cannot be found.
var ErrRenderNotFound = errors.New("render not found")

// ErrCancelled is the context cause used when a cancellation token triggers.
// It never becomes the error of an Outcome: cancellation is not a failure.
var ErrCancelled = errors.New("render cancelled")

// ErrLockAcquire is returned when the output location lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire output lock")

// InfraKind classifies infrastructure failures.
type InfraKind string

const (
	KindSession    InfraKind = "session"
	KindNavigation InfraKind = "navigation"
	KindCapture    InfraKind = "capture"
	KindIO         InfraKind = "io"
)

// InfraError is a non-exception failure of the rendering infrastructure
// (session loss, navigation failure, I/O failure during assembly).
type InfraError struct {
	Kind  InfraKind
	Op    string
	Frame *int
	Err   error
}

func (e *InfraError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Op != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Op)
	}
	if e.Frame != nil {
		fmt.Fprintf(&sb, " (frame %d)", *e.Frame)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *InfraError) Unwrap() error { return e.Err }

// ExceptionError is an exception raised inside the composition that carried no
// structured call stack. It is never symbolicated.
type ExceptionError struct {
	Message string
	Stack   string
}

func (e *ExceptionError) Error() string { return e.Message }

// SymbolicateableErrorParams holds the constructor arguments of a SymbolicateableError.
type SymbolicateableErrorParams struct {
	Message         string
	StackFrames     []SymbolicatedStackFrame
	Frame           *int
	Name            string
	Stack           string
	DelayRenderCall []SymbolicatedStackFrame
}

// SymbolicateableError is an exception raised inside the composition, carrying the
// (symbolicated when possible) stack frames and the output frame that was being produced.
// It is immutable after construction.
type SymbolicateableError struct {
	message         string
	stackFrames     []SymbolicatedStackFrame
	frame           *int
	name            string
	stack           string
	delayRenderCall []SymbolicatedStackFrame
}

// NewSymbolicateableError builds an immutable error from p.
func NewSymbolicateableError(p SymbolicateableErrorParams) *SymbolicateableError {
	var frame *int
	if p.Frame != nil {
		f := *p.Frame
		frame = &f
	}
	return &SymbolicateableError{
		message:         p.Message,
		stackFrames:     slices.Clone(p.StackFrames),
		frame:           frame,
		name:            p.Name,
		stack:           p.Stack,
		delayRenderCall: slices.Clone(p.DelayRenderCall),
	}
}

func (e *SymbolicateableError) Error() string {
	if e.name == "" {
		return e.message
	}
	return e.name + ": " + e.message
}

// Message returns the cleaned human-readable message.
func (e *SymbolicateableError) Message() string { return e.message }

// Name returns the exception class name.
func (e *SymbolicateableError) Name() string { return e.name }

// Stack returns the raw stack text reported by the browser.
func (e *SymbolicateableError) Stack() string { return e.stack }

// Frame returns the output frame being produced when the error occurred.
func (e *SymbolicateableError) Frame() (int, bool) {
	if e.frame == nil {
		return 0, false
	}
	return *e.frame, true
}

// StackFrames returns a copy of the stack frames.
func (e *SymbolicateableError) StackFrames() []SymbolicatedStackFrame {
	return slices.Clone(e.stackFrames)
}

// DelayRenderCall returns the frames of the delayRender call embedded in the message, if any.
func (e *SymbolicateableError) DelayRenderCall() []SymbolicatedStackFrame {
	return slices.Clone(e.delayRenderCall)
}

// Params returns the constructor arguments, for deriving a modified copy.
func (e *SymbolicateableError) Params() SymbolicateableErrorParams {
	return SymbolicateableErrorParams{
		Message:         e.message,
		StackFrames:     e.StackFrames(),
		Frame:           e.frame,
		Name:            e.name,
		Stack:           e.stack,
		DelayRenderCall: e.DelayRenderCall(),
	}
}

// Report renders the error with its symbolicated stack, for humans.
func (e *SymbolicateableError) Report() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	if f, ok := e.Frame(); ok {
		fmt.Fprintf(&sb, " (at frame %d)", f)
	}
	if len(e.stackFrames) > 0 {
		sb.WriteByte('\n')
		sb.WriteString(FormatStack(e.stackFrames))
	}
	if len(e.delayRenderCall) > 0 {
		sb.WriteString("\n  delayRender() was called:\n")
		sb.WriteString(FormatStack(e.delayRenderCall))
	}
	return sb.String()
}
