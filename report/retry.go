package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// withRetry executes task with Fibonacci backoff up to 5 retries, matching
// the teacher's Retry helper. Sinks are best-effort (SPEC_FULL.md §4.L): a
// permanently-failing sink is logged and swallowed, never surfaced as a
// test failure.
func withRetry(ctx context.Context, task func(ctx context.Context) error) error {
	b := retry.NewFibonacci(1 * time.Second)
	wrapped := func(ctx context.Context) error {
		if err := task(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), wrapped); err != nil {
		slog.Warn("sink publish gave up after retries", "error", err)
		return err
	}
	return nil
}
