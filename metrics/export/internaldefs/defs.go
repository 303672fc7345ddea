package internaldefs

import (
	sessiongate "github.com/calebforth/sessiongate"
)

// CounterDef binds a metric id to its exposition name and help text.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram id to its exposition name and help text.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricLoginSuccess, Name: "sessiongate_login_success_total", Help: "Successful login session creations."},
	{ID: sessiongate.MetricLoginFailure, Name: "sessiongate_login_failure_total", Help: "Failed login session creations."},
	{ID: sessiongate.MetricUserCreated, Name: "sessiongate_user_created_total", Help: "New local users created on first login."},
	{ID: sessiongate.MetricAccountConflict, Name: "sessiongate_account_conflict_total", Help: "Logins rejected because the email belongs to another identity."},
	{ID: sessiongate.MetricSessionCreated, Name: "sessiongate_session_created_total", Help: "Created sessions."},
	{ID: sessiongate.MetricSessionDisplaced, Name: "sessiongate_session_displaced_total", Help: "Sessions displaced by the concurrent-session cap."},
	{ID: sessiongate.MetricRefreshSuccess, Name: "sessiongate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: sessiongate.MetricRefreshFailure, Name: "sessiongate_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: sessiongate.MetricRefreshReuseDetected, Name: "sessiongate_refresh_reuse_detected_total", Help: "Detected refresh credential reuses."},
	{ID: sessiongate.MetricValidateSuccess, Name: "sessiongate_validate_success_total", Help: "Validations answered valid."},
	{ID: sessiongate.MetricValidateFailure, Name: "sessiongate_validate_failure_total", Help: "Validations answered invalid."},
	{ID: sessiongate.MetricCacheHit, Name: "sessiongate_cache_hit_total", Help: "Validations answered from the identity cache."},
	{ID: sessiongate.MetricCacheMiss, Name: "sessiongate_cache_miss_total", Help: "Identity cache misses falling through to the store."},
	{ID: sessiongate.MetricCacheDegraded, Name: "sessiongate_cache_degraded_total", Help: "Cache operations that failed and degraded to the store."},
	{ID: sessiongate.MetricLogout, Name: "sessiongate_logout_total", Help: "Single-session logout operations."},
	{ID: sessiongate.MetricLogoutAll, Name: "sessiongate_logout_all_total", Help: "All-devices logout operations."},
	{ID: sessiongate.MetricSessionInvalidated, Name: "sessiongate_session_invalidated_total", Help: "Sessions flipped invalid in the durable store."},
	{ID: sessiongate.MetricDisconnectSignal, Name: "sessiongate_disconnect_signal_total", Help: "Disconnect signals emitted to the real-time layer."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricValidateLatency, Name: "sessiongate_validate_latency_seconds", Help: "Validation latency histogram."},
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets widens a raw snapshot slice to the fixed bucket array,
// tolerating short or missing slices.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// both exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
