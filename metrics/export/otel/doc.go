// Package otel bridges engine metrics into OpenTelemetry through
// observable instruments, mirroring the names exposed by the Prometheus
// exporter.
package otel
