package internaldefs

import (
	goPassport "github.com/MrEthical07/goPassport"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goPassport.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goPassport.MetricID
	Name string
	Help string
}

// AuditDroppedName is the exported name of the audit backpressure counter.
const AuditDroppedName = "gopassport_audit_dropped_total"

// AuditDroppedHelp describes [AuditDroppedName].
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goPassport.MetricCredentialAuthenticated, Name: "gopassport_credential_authenticated_total", Help: "Successful credential verifications."},
	{ID: goPassport.MetricCredentialUnknownAccount, Name: "gopassport_credential_unknown_account_total", Help: "Credential verifications for accounts that do not exist."},
	{ID: goPassport.MetricCredentialInvalidPassword, Name: "gopassport_credential_invalid_password_total", Help: "Credential verifications with a wrong password."},
	{ID: goPassport.MetricCredentialUnknown, Name: "gopassport_credential_unknown_total", Help: "Credential verifications that failed with a fault."},
	{ID: goPassport.MetricTokenAuthenticated, Name: "gopassport_token_authenticated_total", Help: "Accepted bearer tokens, including grace acceptances."},
	{ID: goPassport.MetricTokenGraceAccepted, Name: "gopassport_token_grace_accepted_total", Help: "Expired tokens accepted on grace-exempt paths."},
	{ID: goPassport.MetricTokenExpired, Name: "gopassport_token_expired_total", Help: "Expired tokens rejected on non-exempt paths."},
	{ID: goPassport.MetricTokenInvalid, Name: "gopassport_token_invalid_total", Help: "Tokens missing, undecodable, or not in the active set."},
	{ID: goPassport.MetricTokenUnknown, Name: "gopassport_token_unknown_total", Help: "Token validations that failed with a fault."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goPassport.MetricValidateLatency, Name: "gopassport_validate_latency_seconds", Help: "Token validation latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds, matching the
// engine's millisecond buckets. The last engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten histograms into gauges.
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

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
