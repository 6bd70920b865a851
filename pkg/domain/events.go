package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRenderStart   EventType = "render_start"
	EventFrameCaptured EventType = "frame_captured"
	EventRenderFinish  EventType = "render_finish"
	EventWarning       EventType = "warning"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RenderID  string    `json:"render_id"`
}

// RenderEvent marks the start or the end of a render.
type RenderEvent struct {
	EventBase
	Composition string        `json:"composition"`
	Frames      int           `json:"frames"`
	Outcome     *Outcome      `json:"-"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// FrameEvent reports one captured frame.
type FrameEvent struct {
	EventBase
	Worker   int           `json:"worker"`
	Frame    int           `json:"frame"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// WarningEvent reports a non-fatal internal fault.
type WarningEvent struct {
	EventBase
	Err error `json:"-"`
}

// LifecycleHooks defines callbacks for render observability.
// Hooks run synchronously on orchestrator goroutines and must not block.
type LifecycleHooks struct {
	OnRenderStart   func(context.Context, *RenderEvent)
	OnFrameCaptured func(context.Context, *FrameEvent)
	OnRenderFinish  func(context.Context, *RenderEvent)
	OnWarning       func(context.Context, *WarningEvent)
}
