package domain

import (
	"fmt"
	"time"
)

// RenderState is the state of a render's lifecycle.
type RenderState string

const (
	StateIdle      RenderState = "idle"
	StateRunning   RenderState = "running"
	StateSucceeded RenderState = "succeeded"
	StateCancelled RenderState = "cancelled"
	StateFailed    RenderState = "failed"
)

// Terminal reports whether no transition can leave the state.
func (s RenderState) Terminal() bool {
	return s == StateSucceeded || s == StateCancelled || s == StateFailed
}

// OutcomeKind tags the variant of an Outcome.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// State returns the terminal render state matching the outcome kind.
func (k OutcomeKind) State() RenderState {
	switch k {
	case OutcomeSucceeded:
		return StateSucceeded
	case OutcomeCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}

// Outcome is the single terminal result of a render invocation.
// Artifact is set only for Succeeded, Err only for Failed; Cancelled carries neither.
type Outcome struct {
	Kind           OutcomeKind
	RenderID       string
	Artifact       *Artifact
	Err            error
	FramesCaptured int
	Warnings       []error
	Duration       time.Duration
}

// Succeeded builds a success outcome.
func Succeeded(artifact *Artifact) Outcome {
	return Outcome{Kind: OutcomeSucceeded, Artifact: artifact}
}

// Cancelled builds a cancellation outcome.
func Cancelled() Outcome {
	return Outcome{Kind: OutcomeCancelled}
}

// Failed builds a failure outcome.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSucceeded:
		if o.Artifact != nil {
			return fmt.Sprintf("succeeded: %s (%d frames)", o.Artifact.Location, o.Artifact.Frames)
		}
		return "succeeded"
	case OutcomeFailed:
		return fmt.Sprintf("failed: %v", o.Err)
	default:
		return o.Kind.String()
	}
}

// RenderRecord is the persisted status of a render job.
type RenderRecord struct {
	ID          string      `json:"id"`
	Composition string      `json:"composition"`
	State       RenderState `json:"state"`
	Artifact    *Artifact   `json:"artifact,omitempty"`
	Error       string      `json:"error,omitempty"`
	Frames      int         `json:"frames"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}
