package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/tokenpair"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   tokenpair.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   tokenpair.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: tokenpair.MetricLoginSuccess, Name: "tokenpair_login_success_total", Help: "Successful logins."},
	{ID: tokenpair.MetricLoginFailure, Name: "tokenpair_login_failure_total", Help: "Failed logins."},
	{ID: tokenpair.MetricRefreshSuccess, Name: "tokenpair_refresh_success_total", Help: "Access tokens issued from refresh tokens."},
	{ID: tokenpair.MetricRefreshFailure, Name: "tokenpair_refresh_failure_total", Help: "Rejected refresh requests."},
	{ID: tokenpair.MetricLogoutSuccess, Name: "tokenpair_logout_success_total", Help: "Refresh tokens revoked by logout."},
	{ID: tokenpair.MetricLogoutFailure, Name: "tokenpair_logout_failure_total", Help: "Rejected logout requests."},
	{ID: tokenpair.MetricAuthenticateSuccess, Name: "tokenpair_authenticate_success_total", Help: "Bearer tokens resolved to a principal."},
	{ID: tokenpair.MetricAuthenticateFailure, Name: "tokenpair_authenticate_failure_total", Help: "Bearer tokens that failed authentication."},
	{ID: tokenpair.MetricDecodeAccess, Name: "tokenpair_decode_access_total", Help: "Bearer strings accepted by the access codec."},
	{ID: tokenpair.MetricDecodeRefresh, Name: "tokenpair_decode_refresh_total", Help: "Bearer strings accepted by the refresh codec."},
	{ID: tokenpair.MetricDecodeNone, Name: "tokenpair_decode_none_total", Help: "Bearer strings rejected by both codecs."},
	{ID: tokenpair.MetricRevokedRejected, Name: "tokenpair_revoked_rejected_total", Help: "Tokens rejected because their id is in the ledger."},
	{ID: tokenpair.MetricExpiredRejected, Name: "tokenpair_expired_rejected_total", Help: "Tokens rejected as expired."},
	{ID: tokenpair.MetricCapabilityDenied, Name: "tokenpair_capability_denied_total", Help: "Requests denied for a missing capability."},
	{ID: tokenpair.MetricRoleDenied, Name: "tokenpair_role_denied_total", Help: "Requests denied for a missing role."},
	{ID: tokenpair.MetricBackendUnavailable, Name: "tokenpair_backend_unavailable_total", Help: "Ledger, directory or limiter failures."},
	{ID: tokenpair.MetricLoginThrottled, Name: "tokenpair_login_throttled_total", Help: "Logins refused by the attempt limiter."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenpair.MetricAuthenticateLatency, Name: "tokenpair_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "tokenpair_audit_dropped_total"

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(tokenpair.HistogramBucketBounds))
	for i, d := range tokenpair.HistogramBucketBounds {
		out[i] = d.Seconds()
	}
	return out
}

// BoundSuffixes returns metric-name-safe labels for every bucket,
// including the final "inf" bucket.
func BoundSuffixes() []string {
	bounds := UpperBounds()
	out := make([]string, 0, len(bounds)+1)
	for _, b := range bounds {
		out = append(out, strings.ReplaceAll(strconv.FormatFloat(b, 'f', -1, 64), ".", "_"))
	}
	return append(out, "inf")
}

// NormalizeBuckets pads or truncates raw to one entry per bucket.
func NormalizeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(tokenpair.HistogramBucketBounds)+1)
	copy(out, raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
