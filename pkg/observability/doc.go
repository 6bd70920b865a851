/*
Package observability provides tools for monitoring the render orchestrator.

It includes Prometheus metrics fed by lifecycle hooks, structured-logging hooks,
a combinator to chain several hook sets, and the OpenTelemetry tracer used to
span renders and frame captures.
*/
package observability
