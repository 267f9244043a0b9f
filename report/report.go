// Package report formats benchmark results for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Jiyang-Wu/makobench/bench"
)

// Generate writes a human-readable summary of one run.
func Generate(w io.Writer, result *bench.Result) error {
	if result == nil {
		return fmt.Errorf("no result to report")
	}

	fmt.Fprintln(w, "## RMW Benchmark")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Target: %s:%d (key %q)\n",
		result.Host, result.Port, result.Key)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Attempted RMW cycles:  %d / %d\n",
		result.AttemptedOps, result.ConfiguredOps)
	fmt.Fprintf(w, "Successful increments: %d\n", result.SuccessCount)
	fmt.Fprintf(w, "Failed iterations:     %d\n", result.FailedOps)
	fmt.Fprintf(w, "Elapsed:               %s\n", formatMs(result.ElapsedMs))
	fmt.Fprintf(w, "Throughput:            %.2f RMW/sec\n", result.Throughput)

	if result.P50Us > 0 {
		fmt.Fprintf(w, "Latency (p50/p95/p99): %dus / %dus / %dus\n",
			result.P50Us, result.P95Us, result.P99Us)
	}

	if result.AbortReason != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Loop aborted: %s\n", result.AbortReason)
	}

	fmt.Fprintln(w)

	switch result.Verification {
	case bench.VerifyPass:
		fmt.Fprintf(w, "Verifier: PASS (counter = %d)\n", result.ActualValue)
	case bench.VerifyFail:
		fmt.Fprintf(w, "Verifier: FAIL (expected %d, actual %d)\n",
			result.ExpectedValue, result.ActualValue)
	default:
		fmt.Fprintln(w, "Verifier: SKIPPED")
	}

	return nil
}

// GenerateJSON writes the result as indented JSON to w.
func GenerateJSON(w io.Writer, result *bench.Result) error {
	if result == nil {
		return fmt.Errorf("no result to report")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}
