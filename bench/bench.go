package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Jiyang-Wu/makobench/client"
	"github.com/Jiyang-Wu/makobench/resp"
)

// minElapsed floors the measured wall-clock time so throughput stays
// finite when a run completes faster than the clock resolution.
const minElapsed = 100 * time.Microsecond

// Runner executes the benchmark state machine against one server
// endpoint: initialize the counter, run the timed read-modify-write
// loop, then verify the final value over a fresh connection.
type Runner struct {
	Host   string
	Port   int
	Key    string
	NumOps int
	Logger *slog.Logger
}

// NewRunner creates a Runner for the given endpoint and key.
func NewRunner(
	host string, port int,
	key string, numOps int,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Host:   host,
		Port:   port,
		Key:    key,
		NumOps: numOps,
		Logger: logger.With(slog.String("key", key)),
	}
}

// Run drives Init, Looping, Verifying, and Done. Initialization
// failures are fatal and return an error; a transport or protocol
// fault inside the loop aborts the remaining iterations but still
// yields the partial Result accumulated so far.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Host:          r.Host,
		Port:          r.Port,
		Key:           r.Key,
		ConfiguredOps: r.NumOps,
		Verification:  VerifySkipped,
	}

	conn, err := client.Dial(r.Host, r.Port)
	if err != nil {
		return nil, fmt.Errorf("open benchmark session: %w", err)
	}

	if err := r.initCounter(ctx, conn); err != nil {
		conn.Close()

		return nil, err
	}

	r.Logger.InfoContext(ctx, "starting RMW loop",
		slog.Int("ops", r.NumOps),
	)

	samples := r.loop(ctx, conn, result)

	// The session connection is released before the verification
	// connection opens; the two never overlap.
	conn.Close()

	if result.AbortReason != "" {
		r.Logger.WarnContext(ctx, "loop aborted",
			slog.Int("attempted", result.AttemptedOps),
			slog.String("reason", result.AbortReason),
		)
	}

	fillLatencies(result, samples)

	r.verify(ctx, result)

	return result, nil
}

// initCounter resets the key to "0" and requires the standard
// acknowledgement. Anything else aborts the whole run.
func (r *Runner) initCounter(ctx context.Context, conn *client.Conn) error {
	reply, err := conn.Do("SET", r.Key, "0")
	if err != nil {
		return fmt.Errorf("initialize counter: %w", err)
	}

	if err := reply.Err(); err != nil {
		return fmt.Errorf("initialize counter: %w", err)
	}

	if !reply.OK() {
		return fmt.Errorf(
			"initialize counter: unexpected reply %q", reply.Value,
		)
	}

	r.Logger.InfoContext(ctx, "counter initialized")

	return nil
}

// loop runs the timed read-modify-write iterations. A rejected SET is
// recorded and the loop continues; a transport or protocol fault stops
// it and preserves the counts accumulated so far.
func (r *Runner) loop(
	ctx context.Context,
	conn *client.Conn,
	result *Result,
) []time.Duration {
	samples := make([]time.Duration, 0, r.NumOps)
	start := time.Now()

	for i := 0; i < r.NumOps; i++ {
		result.AttemptedOps = i + 1
		opStart := time.Now()

		current, err := r.readCounter(conn)
		if err != nil {
			var serverErr resp.ServerError
			if errors.As(err, &serverErr) {
				// The server rejected the read; there is no value to
				// increment, so the iteration fails but the session
				// is still usable.
				result.FailedOps++
				r.Logger.WarnContext(ctx, "GET rejected",
					slog.Int("op", i),
					slog.String("error", err.Error()),
				)

				continue
			}

			result.AbortReason = err.Error()

			break
		}

		reply, err := conn.Do("SET", r.Key, current+1)
		if err != nil {
			result.AbortReason = err.Error()

			break
		}

		if reply.OK() {
			result.SuccessCount++
		} else {
			result.FailedOps++
			r.Logger.WarnContext(ctx, "SET not acknowledged",
				slog.Int("op", i),
				slog.String("reply", string(reply.Value)),
			)
		}

		samples = append(samples, time.Since(opStart))
	}

	elapsed := time.Since(start)
	if elapsed < minElapsed {
		elapsed = minElapsed
	}

	result.ElapsedMs = elapsed.Milliseconds()
	result.Throughput = float64(r.NumOps) / elapsed.Seconds()

	return samples
}

// readCounter issues one GET and interprets the reply as the current
// counter value. An absent key reads as zero.
func (r *Runner) readCounter(conn *client.Conn) (int64, error) {
	reply, err := conn.Do("GET", r.Key)
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}

	n, err := reply.Int()
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}

	return n, nil
}

func fillLatencies(result *Result, samples []time.Duration) {
	if len(samples) == 0 {
		return
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	result.P50Us = percentile(sorted, 0.50).Microseconds()
	result.P95Us = percentile(sorted, 0.95).Microseconds()
	result.P99Us = percentile(sorted, 0.99).Microseconds()
}

// percentile reads the q-th quantile from an ascending sample set.
func percentile(sorted []time.Duration, q float64) time.Duration {
	idx := int(q * float64(len(sorted)-1))

	return sorted[idx]
}
