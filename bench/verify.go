package bench

import (
	"context"
	"log/slog"

	"github.com/Jiyang-Wu/makobench/client"
)

// verify opens a fresh connection and compares the stored counter
// against the number of acknowledged increments. A mismatch is
// reported, not fatal; a failure to check at all leaves the
// verification skipped.
func (r *Runner) verify(ctx context.Context, result *Result) {
	result.ExpectedValue = int64(result.SuccessCount)

	conn, err := client.Dial(r.Host, r.Port)
	if err != nil {
		r.Logger.WarnContext(ctx, "verification connection failed",
			slog.String("error", err.Error()),
		)

		return
	}
	defer conn.Close()

	actual, err := r.readCounter(conn)
	if err != nil {
		r.Logger.WarnContext(ctx, "verification read failed",
			slog.String("error", err.Error()),
		)

		return
	}

	result.ActualValue = actual

	if actual == result.ExpectedValue {
		result.Verification = VerifyPass
	} else {
		result.Verification = VerifyFail
		r.Logger.WarnContext(ctx, "counter mismatch",
			slog.Int64("expected", result.ExpectedValue),
			slog.Int64("actual", actual),
		)
	}
}
