// Package internaldefs holds the metric definitions shared by the
// Prometheus and OpenTelemetry exporters so both expose identical names,
// help texts, and bucket layouts.
package internaldefs
