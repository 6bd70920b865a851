package domain

import (
	"fmt"
	"strings"
)

// CallFrame is one structured call frame of a RawExceptionEvent, as reported by the
// DevTools protocol (0-based line and column).
type CallFrame struct {
	URL          string `json:"url"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
	FunctionName string `json:"functionName"`
}

// RawExceptionEvent is an asynchronous exception raised inside a remote execution context.
// CallFrames is nil when the event carries no structured call stack.
type RawExceptionEvent struct {
	Description string
	ClassName   string
	CallFrames  []CallFrame
}

// HasStackTrace reports whether the event carries a structured call stack.
func (e RawExceptionEvent) HasStackTrace() bool {
	return e.CallFrames != nil
}

// UnsymbolicatedStackFrame is a stack frame pointing into the served (minified) bundle.
type UnsymbolicatedStackFrame struct {
	FileName     string `json:"file_name"`
	LineNumber   int    `json:"line_number"`
	ColumnNumber int    `json:"column_number"`
	FunctionName string `json:"function_name"`
}

// FrameFromCall maps a raw call frame 1:1 to an UnsymbolicatedStackFrame.
func FrameFromCall(cf CallFrame) UnsymbolicatedStackFrame {
	return UnsymbolicatedStackFrame{
		FileName:     cf.URL,
		LineNumber:   cf.LineNumber,
		ColumnNumber: cf.ColumnNumber,
		FunctionName: cf.FunctionName,
	}
}

// OriginalLocation is a resolved position in the original source.
type OriginalLocation struct {
	Source       string `json:"source"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	FunctionName string `json:"function_name,omitempty"`
}

// SymbolicatedStackFrame is an UnsymbolicatedStackFrame plus its original location.
// Original is nil when resolution failed.
type SymbolicatedStackFrame struct {
	UnsymbolicatedStackFrame
	Original *OriginalLocation `json:"original,omitempty"`
}

// Unresolved wraps an unsymbolicated frame without an original location.
func Unresolved(f UnsymbolicatedStackFrame) SymbolicatedStackFrame {
	return SymbolicatedStackFrame{UnsymbolicatedStackFrame: f}
}

// Resolved reports whether the frame was mapped to original source.
func (f SymbolicatedStackFrame) Resolved() bool {
	return f.Original != nil
}

// String renders the frame like a browser stack line, preferring the original location.
func (f SymbolicatedStackFrame) String() string {
	fn := f.FunctionName
	file, line, col := f.FileName, f.LineNumber+1, f.ColumnNumber+1
	if f.Original != nil {
		if f.Original.FunctionName != "" {
			fn = f.Original.FunctionName
		}
		file, line, col = f.Original.Source, f.Original.Line, f.Original.Column+1
	}
	if fn == "" {
		return fmt.Sprintf("at %s:%d:%d", file, line, col)
	}
	return fmt.Sprintf("at %s (%s:%d:%d)", fn, file, line, col)
}

// FormatStack renders frames one per line, indented.
func FormatStack(frames []SymbolicatedStackFrame) string {
	var sb strings.Builder
	for i, f := range frames {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("    ")
		sb.WriteString(f.String())
	}
	return sb.String()
}
