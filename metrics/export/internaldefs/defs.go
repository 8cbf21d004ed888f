package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goAccount.MetricRegisterSuccess, Name: "goaccount_register_success_total", Help: "Successful registrations."},
	{ID: goAccount.MetricRegisterConflict, Name: "goaccount_register_conflict_total", Help: "Registrations rejected for a taken username, email or phone number."},
	{ID: goAccount.MetricRegisterInvalid, Name: "goaccount_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful login attempts."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Failed login attempts."},
	{ID: goAccount.MetricLoginRateLimited, Name: "goaccount_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goAccount.MetricLoginUnverified, Name: "goaccount_login_unverified_total", Help: "Logins refused for unverified accounts."},
	{ID: goAccount.MetricRefreshSuccess, Name: "goaccount_refresh_success_total", Help: "Successful refresh operations."},
	{ID: goAccount.MetricRefreshFailure, Name: "goaccount_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goAccount.MetricRefreshReuseDetected, Name: "goaccount_refresh_reuse_detected_total", Help: "Refresh tokens presented after rotation."},
	{ID: goAccount.MetricAuthenticateFailure, Name: "goaccount_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: goAccount.MetricLogout, Name: "goaccount_logout_total", Help: "Logout operations."},
	{ID: goAccount.MetricVerificationIssued, Name: "goaccount_verification_issued_total", Help: "Verification codes issued."},
	{ID: goAccount.MetricVerificationStartFailure, Name: "goaccount_verification_start_failure_total", Help: "Verification bindings that could not be allocated."},
	{ID: goAccount.MetricVerificationSuccess, Name: "goaccount_verification_success_total", Help: "Successful email verifications."},
	{ID: goAccount.MetricVerificationFailure, Name: "goaccount_verification_failure_total", Help: "Failed email verifications."},
	{ID: goAccount.MetricVerificationAttemptsExceeded, Name: "goaccount_verification_attempts_exceeded_total", Help: "Verification bindings locked after too many wrong codes."},
	{ID: goAccount.MetricVerificationResendRateLimited, Name: "goaccount_verification_resend_rate_limited_total", Help: "Rate-limited verification resends."},
	{ID: goAccount.MetricVerificationPurged, Name: "goaccount_verification_purged_total", Help: "Verification bindings removed by purge."},
	{ID: goAccount.MetricMailFailure, Name: "goaccount_mail_failure_total", Help: "Verification mails that failed to send."},
	{ID: goAccount.MetricProfileUpdate, Name: "goaccount_profile_update_total", Help: "Profile updates."},
	{ID: goAccount.MetricPasswordChangeSuccess, Name: "goaccount_password_change_success_total", Help: "Successful password changes."},
	{ID: goAccount.MetricPasswordChangeInvalidOld, Name: "goaccount_password_change_invalid_old_total", Help: "Password change attempts with a wrong current password."},
	{ID: goAccount.MetricPasswordRehash, Name: "goaccount_password_rehash_total", Help: "Password hashes upgraded on login."},
	{ID: goAccount.MetricPasswordRehashFailure, Name: "goaccount_password_rehash_failure_total", Help: "Password hash upgrades that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricLoginLatency, Name: "goaccount_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the upper bounds of the login latency buckets, in
// seconds. They mirror the Engine's millisecond buckets.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix holds attribute-safe spellings of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// AuditDroppedName is exported next to the Engine counters by every exporter.
const (
	AuditDroppedName = "goaccount_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
