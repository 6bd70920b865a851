package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnRenderStart(ctx, &domain.RenderEvent{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRenders))

	hooks.OnFrameCaptured(ctx, &domain.FrameEvent{Duration: 10 * time.Millisecond})
	hooks.OnFrameCaptured(ctx, &domain.FrameEvent{Duration: 20 * time.Millisecond})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesCaptured))

	failed := domain.Failed(&domain.InfraError{Kind: domain.KindSession, Err: errors.New("gone")})
	hooks.OnRenderFinish(ctx, &domain.RenderEvent{Outcome: &failed, Duration: time.Second})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveRenders))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("infra_session")))

	hooks.OnWarning(ctx, &domain.WarningEvent{Err: errors.New("subscriber panicked")})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Warnings))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestErrorClass(t *testing.T) {
	assert.Equal(t, "execution", observability.ErrorClass(&domain.ExceptionError{Message: "x"}))
	assert.Equal(t, "execution", observability.ErrorClass(domain.NewSymbolicateableError(domain.SymbolicateableErrorParams{Message: "x"})))
	assert.Equal(t, "infra_io", observability.ErrorClass(&domain.InfraError{Kind: domain.KindIO}))
	assert.Equal(t, "other", observability.ErrorClass(errors.New("x")))
}

func TestChainHooks(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{OnWarning: func(context.Context, *domain.WarningEvent) { order = append(order, "a") }}
	b := domain.LifecycleHooks{OnWarning: func(context.Context, *domain.WarningEvent) { order = append(order, "b") }}

	chained := observability.ChainHooks(a, domain.LifecycleHooks{}, b)
	chained.OnWarning(context.Background(), &domain.WarningEvent{})
	chained.OnRenderStart(context.Background(), &domain.RenderEvent{})

	assert.Equal(t, []string{"a", "b"}, order)
}
