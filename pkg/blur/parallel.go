package blur

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go-boxblur/pkg/common"
)

// Parallel blurs in into out using one goroutine per row range from
// Partition. The goroutines are started for this call only and have all
// returned by the time Parallel does. Each writes only the rows it owns, and
// in is read without locking.
func Parallel(in, out *common.Grid, workers int) error {
	ranges, err := Partition(in.Height, workers)
	if err != nil {
		return err
	}
	if err := checkBuffers(in, out); err != nil {
		return err
	}
	if !hasInterior(in) {
		return nil
	}

	log := Logger()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("blur: parallel start",
			slog.String("size", in.Size().String()),
			slog.Int("workers", workers),
			slog.String("plan", Describe(ranges)))
	}

	var wg sync.WaitGroup
	wg.Add(len(ranges))
	for _, r := range ranges {
		go func(r RowRange) {
			defer wg.Done()
			blurRows(in, out, r.Start, r.End)
		}(r)
	}
	wg.Wait()

	log.Debug("blur: parallel joined", slog.Int("workers", workers))
	return nil
}

// Describe renders a partition plan, e.g. "[0,250) [250,500)".
func Describe(ranges []RowRange) string {
	var b strings.Builder
	for i, r := range ranges {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "[%d,%d)", r.Start, r.End)
	}
	return b.String()
}
