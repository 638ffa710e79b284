package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sys/cpu"
	"gonum.org/v1/gonum/stat"

	"go-boxblur/pkg/common"
)

// Summarize fills Mean and StdDev (seconds) of r from r.Runs. A single run
// has a standard deviation of zero.
func Summarize(r *common.TrialResult) {
	if len(r.Runs) == 0 {
		r.Mean, r.StdDev = 0, 0
		return
	}
	secs := lo.Map(r.Runs, func(d time.Duration, _ int) float64 { return d.Seconds() })
	if len(secs) == 1 {
		r.Mean, r.StdDev = secs[0], 0
		return
	}
	r.Mean, r.StdDev = stat.MeanStdDev(secs, nil)
}

// ApplyBaseline sets Speedup and Efficiency of r against the mean time of the
// sequential baseline for the same size.
func ApplyBaseline(r *common.TrialResult, baseline float64) {
	if r.Mean <= 0 || baseline <= 0 {
		r.Speedup, r.Efficiency = 0, 0
		return
	}
	r.Speedup = baseline / r.Mean
	r.Efficiency = r.Speedup / float64(r.Workers)
}

// HostInfo describes the machine a sweep ran on.
func HostInfo() string {
	features := "none"
	switch runtime.GOARCH {
	case "amd64", "386":
		features = fmt.Sprintf("sse4.2=%t avx2=%t avx512f=%t", cpu.X86.HasSSE42, cpu.X86.HasAVX2, cpu.X86.HasAVX512F)
	case "arm64":
		features = fmt.Sprintf("asimd=%t sve=%t", cpu.ARM64.HasASIMD, cpu.ARM64.HasSVE)
	}
	return fmt.Sprintf("%s/%s cpus=%d gomaxprocs=%d %s",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.GOMAXPROCS(0), features)
}

// PrintTable writes one line per trial, grouped by size.
func PrintTable(w io.Writer, results []common.TrialResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "size\tworkers\tmode\tmean(s)\tstddev(s)\tspeedup\tefficiency\tverified\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.6f\t%.6f\t%.2fx\t%.2f\t%s\t\n",
			r.Size, r.Workers, r.Mode, r.Mean, r.StdDev, r.Speedup, r.Efficiency, verifiedLabel(r.Verified))
	}
	tw.Flush()
}

func verifiedLabel(v *bool) string {
	switch {
	case v == nil:
		return "-"
	case *v:
		return "ok"
	default:
		return "MISMATCH"
	}
}

// WritePerformanceResults writes the results file into dir and returns its path.
func WritePerformanceResults(dir string, results []common.TrialResult) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	timestamp := results[0].Timestamp.Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("boxblur_%s.txt", timestamp))

	file, err := os.Create(resultsFile)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	if err := writeResults(file, results); err != nil {
		return "", fmt.Errorf("failed to write results file: %w", err)
	}
	return resultsFile, nil
}

func writeResults(w io.Writer, results []common.TrialResult) error {
	ew := &errWriter{w: w}

	fmt.Fprintf(ew, "=== 3x3 Box Blur Sequential vs Parallel Results ===\n")
	fmt.Fprintf(ew, "Timestamp: %s\n", results[0].Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(ew, "Host: %s\n\n", HostInfo())

	bySize := lo.GroupBy(results, func(r common.TrialResult) common.Size { return r.Size })
	sizes := lo.Uniq(lo.Map(results, func(r common.TrialResult, _ int) common.Size { return r.Size }))

	for _, size := range sizes {
		fmt.Fprintf(ew, "=== Image %s ===\n", size)
		for _, r := range bySize[size] {
			fmt.Fprintf(ew, "Workers: %d (%s)\n", r.Workers, r.Mode)
			fmt.Fprintf(ew, "  Runs: %d\n", len(r.Runs))
			fmt.Fprintf(ew, "  Mean time: %.6fs\n", r.Mean)
			fmt.Fprintf(ew, "  Std dev: %.6fs\n", r.StdDev)
			if r.Mode == common.ModeParallel {
				fmt.Fprintf(ew, "  Speedup: %.2fx\n", r.Speedup)
				fmt.Fprintf(ew, "  Efficiency: %.2f\n", r.Efficiency)
			}
			if r.Verified != nil {
				fmt.Fprintf(ew, "  Matches sequential: %s\n", verifiedLabel(r.Verified))
			}
		}
		fmt.Fprintf(ew, "\n")
	}
	return ew.err
}

// errWriter keeps the first write error and drops everything after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
