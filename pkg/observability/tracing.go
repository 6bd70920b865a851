package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of the render spans.
const TracerName = "github.com/aretw0/reel"

// Tracer returns the tracer from the global provider (a no-op unless the host
// installs an SDK provider).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
