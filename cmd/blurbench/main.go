package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go-boxblur/pkg/bench"
	"go-boxblur/pkg/blur"
	"go-boxblur/pkg/common"
	"go-boxblur/pkg/queue"
	"go-boxblur/pkg/stats"
)

type options struct {
	sizes    string
	workers  string
	repeat   int
	seed     uint64
	verify   bool
	outDir   string
	redis    string
	logLevel string

	resultsRedis string
	limit        int64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		log.Fatalf("blurbench: %v", err)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "blurbench",
		Short: "Time a 3x3 box blur, sequential vs row-partitioned parallel",
		Long: "blurbench blurs synthetic grayscale images of several sizes with a single\n" +
			"goroutine and with the rows split across N goroutines, and reports the time\n" +
			"and speedup of every (size, workers) pair.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd.Context(), opts, stdout, stderr)
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	addSweepFlags(root.Flags(), opts)
	root.Flags().IntVar(&opts.repeat, "repeat", 1, "timed runs per trial")
	root.Flags().StringVar(&opts.outDir, "out", "logs", "directory for the results file, empty to skip it")
	root.Flags().StringVar(&opts.redis, "redis", "", "Redis address to publish results to")
	root.Flags().BoolVar(&opts.verify, "verify", false, "check every parallel output against the sequential one")

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check parallel output equals sequential output for every size and worker count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(stderr, opts.logLevel)
			if err != nil {
				return err
			}
			return bench.NewRunner(cfg, logger, stdout, nil).Verify(cmd.Context())
		},
	}
	addSweepFlags(verify.Flags(), opts)

	results := &cobra.Command{
		Use:   "results",
		Short: "Print trial results previously published to Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printPublished(cmd.Context(), opts, stdout)
		},
	}
	results.Flags().StringVar(&opts.resultsRedis, "redis", "localhost:6379", "Redis address")
	results.Flags().Int64Var(&opts.limit, "limit", 0, "show only the newest N results, 0 for all")

	root.AddCommand(verify, results)
	return root
}

func addSweepFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVar(&opts.sizes, "sizes", "500x500,1000x1000,2000x2000", "comma separated image sizes, WxH")
	fs.StringVar(&opts.workers, "workers", "1,2,4,8", "comma separated worker counts")
	fs.Uint64Var(&opts.seed, "seed", 1, "seed for the random input image")
}

func buildConfig(opts *options) (bench.Config, error) {
	cfg := bench.DefaultConfig()

	sizes, err := bench.ParseSizes(opts.sizes)
	if err != nil {
		return cfg, err
	}
	workers, err := bench.ParseWorkers(opts.workers)
	if err != nil {
		return cfg, err
	}

	cfg.Sizes = sizes
	cfg.Workers = workers
	cfg.Seed = opts.seed
	cfg.Repeat = opts.repeat
	cfg.Verify = opts.verify
	cfg.OutputDir = opts.outDir
	cfg.RedisAddr = opts.redis
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func runSweep(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(stderr, opts.logLevel)
	if err != nil {
		return err
	}
	blur.SetLogger(logger)

	var publisher bench.Publisher
	if cfg.RedisAddr != "" {
		client, err := queue.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer client.Close()
		publisher = client
		logger.Info("publishing results", slog.String("redis", cfg.RedisAddr), slog.String("stream", queue.ResultsStream))
	}

	results, err := bench.NewRunner(cfg, logger, stdout, publisher).Run(ctx)
	if err != nil {
		return err
	}
	return report(stdout, cfg, logger, results)
}

// report prints the table, writes the results file and fails when a verified
// trial did not match the sequential output.
func report(stdout io.Writer, cfg bench.Config, logger *slog.Logger, results []common.TrialResult) error {
	fmt.Fprintln(stdout)
	stats.PrintTable(stdout, results)

	if cfg.OutputDir != "" {
		path, err := stats.WritePerformanceResults(cfg.OutputDir, results)
		if err != nil {
			return err
		}
		logger.Info("results written", slog.String("path", path))
	}

	if cfg.Verify {
		return bench.CheckVerified(results)
	}
	return nil
}

func printPublished(ctx context.Context, opts *options, stdout io.Writer) error {
	client, err := queue.NewRedisClient(ctx, opts.resultsRedis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer client.Close()

	entries, err := client.ReadResults(ctx, opts.limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(stdout, "no results in %s\n", queue.ResultsStream)
		return nil
	}

	results := make([]common.TrialResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, e.Result)
	}
	stats.PrintTable(stdout, results)
	return nil
}
