package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/reel/pkg/domain"
)

// ChainHooks combines hook sets; each callback runs every non-nil callback in order.
func ChainHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRenderStart: func(ctx context.Context, e *domain.RenderEvent) {
			for _, h := range sets {
				if h.OnRenderStart != nil {
					h.OnRenderStart(ctx, e)
				}
			}
		},
		OnFrameCaptured: func(ctx context.Context, e *domain.FrameEvent) {
			for _, h := range sets {
				if h.OnFrameCaptured != nil {
					h.OnFrameCaptured(ctx, e)
				}
			}
		},
		OnRenderFinish: func(ctx context.Context, e *domain.RenderEvent) {
			for _, h := range sets {
				if h.OnRenderFinish != nil {
					h.OnRenderFinish(ctx, e)
				}
			}
		},
		OnWarning: func(ctx context.Context, e *domain.WarningEvent) {
			for _, h := range sets {
				if h.OnWarning != nil {
					h.OnWarning(ctx, e)
				}
			}
		},
	}
}

// LoggingHooks logs render lifecycle events with logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRenderStart: func(ctx context.Context, e *domain.RenderEvent) {
			logger.InfoContext(ctx, "render_start", "render_id", e.RenderID, "composition", e.Composition, "frames", e.Frames)
		},
		OnFrameCaptured: func(ctx context.Context, e *domain.FrameEvent) {
			logger.DebugContext(ctx, "frame_captured", "render_id", e.RenderID, "worker", e.Worker, "frame", e.Frame, "bytes", e.Bytes)
		},
		OnRenderFinish: func(ctx context.Context, e *domain.RenderEvent) {
			attrs := []any{"render_id", e.RenderID, "duration", e.Duration}
			if e.Outcome != nil {
				attrs = append(attrs, "outcome", e.Outcome.Kind.String(), "frames_captured", e.Outcome.FramesCaptured)
			}
			logger.InfoContext(ctx, "render_finish", attrs...)
		},
		OnWarning: func(ctx context.Context, e *domain.WarningEvent) {
			logger.WarnContext(ctx, "render_warning", "render_id", e.RenderID, "err", e.Err)
		},
	}
}
