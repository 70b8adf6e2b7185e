package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepsake-ai/keepsake/internal/compress"
	"github.com/keepsake-ai/keepsake/internal/metrics"
)

// Compressor is the subset of the compression pipeline needed by CompressJob.
// Defined here to keep the scheduler decoupled from pipeline internals.
type Compressor interface {
	Compress(ctx context.Context) (compress.Result, error)
}

// CompressJob runs the compression pipeline on a schedule, folding pending
// sessions into the mid and long tiers. Failed runs leave the queue intact,
// so the next tick retries the same batch.
type CompressJob struct {
	Pipeline     Compressor
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 3 * * *"
	Timeout      time.Duration
}

// Compile-time interface check.
var _ Job = (*CompressJob)(nil)

// Name implements Job.
func (j *CompressJob) Name() string { return "compress" }

// Schedule implements Job.
func (j *CompressJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 3 * * *"
}

// Run executes one compression cycle.
func (j *CompressJob) Run(ctx context.Context) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := j.Pipeline.Compress(ctx)
	metrics.CompressionDuration.Observe(time.Since(start).Seconds())
	metrics.CompressionRuns.WithLabelValues(runStatus(res, err)).Inc()

	if err != nil {
		return fmt.Errorf("cron: compress: %w", err)
	}
	if res.NoOp {
		j.Logger.Debug("cron: nothing pending, compression skipped")
		return nil
	}

	j.Logger.Info("cron: compression cycle completed",
		"sessions", res.Sessions,
		"week", res.WeekID,
	)
	return nil
}

func runStatus(res compress.Result, err error) string {
	switch {
	case errors.Is(err, compress.ErrProviderUnreachable):
		return "provider_error"
	case errors.Is(err, compress.ErrMalformedResponse):
		return "malformed"
	case err != nil:
		return "error"
	case res.NoOp:
		return "noop"
	default:
		return "success"
	}
}
