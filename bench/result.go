// Package bench drives the read-modify-write counter benchmark and
// its post-hoc verification pass over a raw RESP connection.
package bench

// Verification outcomes for the final counter check.
const (
	VerifyPass    = "pass"
	VerifyFail    = "fail"
	VerifySkipped = "skipped"
)

// Result holds the structured outcome of one benchmark run.
type Result struct {
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	Key           string  `json:"key"`
	ConfiguredOps int     `json:"configured_ops"`
	AttemptedOps  int     `json:"attempted_ops"`
	SuccessCount  int     `json:"success_count"`
	FailedOps     int     `json:"failed_ops"`
	ElapsedMs     int64   `json:"elapsed_ms"`
	Throughput    float64 `json:"throughput_rmw_sec"`
	P50Us         int64   `json:"p50_us"`
	P95Us         int64   `json:"p95_us"`
	P99Us         int64   `json:"p99_us"`
	AbortReason   string  `json:"abort_reason,omitempty"`
	Verification  string  `json:"verification"`
	ExpectedValue int64   `json:"expected_value"`
	ActualValue   int64   `json:"actual_value"`
}
