package observability

import (
	"context"
	"errors"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the render orchestrator.
type Metrics struct {
	Renders         *prometheus.CounterVec
	ActiveRenders   prometheus.Gauge
	FramesCaptured  prometheus.Counter
	CaptureDuration prometheus.Histogram
	RenderDuration  *prometheus.HistogramVec
	Errors          *prometheus.CounterVec
	Warnings        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_renders_total",
				Help: "Total number of finished renders by outcome",
			},
			[]string{"outcome"},
		),
		ActiveRenders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reel_renders_active",
			Help: "Number of renders currently running",
		}),
		FramesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reel_frames_captured_total",
			Help: "Total number of frames captured",
		}),
		CaptureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reel_frame_capture_duration_seconds",
			Help:    "Duration of single frame captures",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reel_render_duration_seconds",
				Help:    "Duration of renders by outcome",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
			},
			[]string{"outcome"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_render_errors_total",
				Help: "Failed renders by error class",
			},
			[]string{"class"},
		),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reel_internal_warnings_total",
			Help: "Non-fatal internal faults reported during renders",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.Renders, m.ActiveRenders, m.FramesCaptured, m.CaptureDuration,
		m.RenderDuration, m.Errors, m.Warnings,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRenderStart: func(ctx context.Context, e *domain.RenderEvent) {
			m.ActiveRenders.Inc()
		},
		OnFrameCaptured: func(ctx context.Context, e *domain.FrameEvent) {
			m.FramesCaptured.Inc()
			m.CaptureDuration.Observe(e.Duration.Seconds())
		},
		OnRenderFinish: func(ctx context.Context, e *domain.RenderEvent) {
			m.ActiveRenders.Dec()
			if e.Outcome == nil {
				return
			}
			outcome := e.Outcome.Kind.String()
			m.Renders.WithLabelValues(outcome).Inc()
			m.RenderDuration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
			if e.Outcome.Kind == domain.OutcomeFailed {
				m.Errors.WithLabelValues(ErrorClass(e.Outcome.Err)).Inc()
			}
		},
		OnWarning: func(ctx context.Context, e *domain.WarningEvent) {
			m.Warnings.Inc()
		},
	}
}

// ErrorClass names the taxonomy class of a render error.
func ErrorClass(err error) string {
	var (
		symErr   *domain.SymbolicateableError
		exErr    *domain.ExceptionError
		infraErr *domain.InfraError
	)
	switch {
	case errors.As(err, &symErr), errors.As(err, &exErr):
		return "execution"
	case errors.As(err, &infraErr):
		return "infra_" + string(infraErr.Kind)
	default:
		return "other"
	}
}
