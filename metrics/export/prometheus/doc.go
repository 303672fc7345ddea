// Package prometheus exposes engine metrics in Prometheus text
// exposition format. The format is rendered by hand from snapshots so the
// engine carries no collector dependency.
package prometheus
