// Package bench runs the size x worker-count sweep around the blur package:
// it owns the image buffers, times every call and reports the results.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/samber/lo"

	"go-boxblur/pkg/blur"
	"go-boxblur/pkg/common"
	"go-boxblur/pkg/stats"
)

var ErrMismatch = errors.New("parallel output differs from sequential output")

// Publisher receives every finished trial.
type Publisher interface {
	AddResult(ctx context.Context, res *common.TrialResult) (string, error)
}

type Runner struct {
	cfg       Config
	log       *slog.Logger
	out       io.Writer
	publisher Publisher
	now       func() time.Time
}

// NewRunner builds a runner that prints progress to out. publisher may be nil.
func NewRunner(cfg Config, log *slog.Logger, out io.Writer, publisher Publisher) *Runner {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		cfg:       cfg,
		log:       log,
		out:       out,
		publisher: publisher,
		now:       time.Now,
	}
}

// workerPlan always starts with the sequential baseline so every parallel
// trial has something to compute its speedup against.
func workerPlan(workers []int) []int {
	rest := lo.Without(lo.Uniq(workers), 1)
	return append([]int{1}, rest...)
}

// Run executes the sweep and returns one result per (size, worker count).
func (r *Runner) Run(ctx context.Context) ([]common.TrialResult, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	startTime := r.now()
	r.log.Info("=== Starting box blur sweep ===",
		slog.Int("sizes", len(r.cfg.Sizes)),
		slog.Any("workers", r.cfg.Workers),
		slog.Int("repeat", r.cfg.Repeat),
		slog.String("host", stats.HostInfo()))

	var results []common.TrialResult
	for _, size := range r.cfg.Sizes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		sizeResults, err := r.runSize(ctx, size, startTime)
		results = append(results, sizeResults...)
		if err != nil {
			return results, fmt.Errorf("size %s: %w", size, err)
		}
	}

	r.log.Info("=== Sweep complete ===",
		slog.Int("trials", len(results)),
		slog.Duration("elapsed", time.Since(startTime)))
	return results, nil
}

// runSize allocates the buffers for one image size and runs every worker
// count against them. The input is filled once; the output is zeroed before
// every timed call.
func (r *Runner) runSize(ctx context.Context, size common.Size, stamp time.Time) ([]common.TrialResult, error) {
	in, err := common.NewGrid(size)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate input: %w", err)
	}
	out, err := common.NewGrid(size)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate output: %w", err)
	}
	in.FillRandom(r.cfg.Seed)

	fmt.Fprintf(r.out, "\n====== Image %s ======\n", size)

	var (
		results   []common.TrialResult
		reference *common.Grid
		baseline  float64
	)
	for _, workers := range workerPlan(r.cfg.Workers) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if workers > runtime.NumCPU() {
			r.log.Warn("worker count exceeds available CPUs",
				slog.Int("workers", workers), slog.Int("cpus", runtime.NumCPU()))
		}

		res := common.TrialResult{
			Size:      size,
			Workers:   workers,
			Mode:      common.ModeParallel,
			Timestamp: stamp,
		}
		if workers == 1 {
			res.Mode = common.ModeSequential
		}

		for range r.cfg.Repeat {
			out.Reset()
			start := time.Now()
			if err := blur.Run(in, out, workers); err != nil {
				return results, fmt.Errorf("%d workers: %w", workers, err)
			}
			res.Runs = append(res.Runs, time.Since(start))
		}
		stats.Summarize(&res)

		if workers == 1 {
			baseline = res.Mean
			if r.cfg.Verify {
				reference = out.Clone()
			}
		} else if reference != nil {
			ok := out.Equal(reference)
			res.Verified = &ok
			if !ok {
				r.log.Error("output mismatch", slog.String("size", size.String()), slog.Int("workers", workers))
			}
		}
		stats.ApplyBaseline(&res, baseline)

		r.report(res)
		r.publish(ctx, &res)
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) report(res common.TrialResult) {
	if res.Mode == common.ModeSequential {
		fmt.Fprintf(r.out, "Sequential (1 worker): %.6fs\n", res.Mean)
		return
	}
	fmt.Fprintf(r.out, "Parallel (%d workers): %.6fs\n", res.Workers, res.Mean)
	fmt.Fprintf(r.out, "Speedup (%d workers): %.2fx\n", res.Workers, res.Speedup)
}

func (r *Runner) publish(ctx context.Context, res *common.TrialResult) {
	if r.publisher == nil {
		return
	}
	id, err := r.publisher.AddResult(ctx, res)
	if err != nil {
		r.log.Warn("failed to publish result",
			slog.String("size", res.Size.String()),
			slog.Int("workers", res.Workers),
			slog.Any("error", err))
		return
	}
	r.log.Debug("published result", slog.String("id", id))
}

// CheckVerified returns ErrMismatch wrapped with the first result whose
// parallel output differed from the sequential output.
func CheckVerified(results []common.TrialResult) error {
	for _, r := range results {
		if r.Verified != nil && !*r.Verified {
			return fmt.Errorf("%w: size %s, %d workers", ErrMismatch, r.Size, r.Workers)
		}
	}
	return nil
}

// Verify runs every configured worker count once per size without timing and
// compares the output with the sequential path. It returns ErrMismatch
// wrapped with the first differing pair.
func (r *Runner) Verify(ctx context.Context) error {
	if err := r.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, size := range r.cfg.Sizes {
		in, err := common.NewGrid(size)
		if err != nil {
			return err
		}
		in.FillRandom(r.cfg.Seed)
		want, err := common.NewGrid(size)
		if err != nil {
			return fmt.Errorf("failed to allocate output: %w", err)
		}
		got := want.Clone()
		if err := blur.Sequential(in, want); err != nil {
			return err
		}

		for _, workers := range lo.Uniq(r.cfg.Workers) {
			if err := ctx.Err(); err != nil {
				return err
			}
			got.Reset()
			if err := blur.Parallel(in, got, workers); err != nil {
				return err
			}
			if !got.Equal(want) {
				return fmt.Errorf("%w: size %s, %d workers", ErrMismatch, size, workers)
			}
			fmt.Fprintf(r.out, "%s workers=%d ok\n", size, workers)
		}
	}
	return nil
}
