// Package blur implements a 3x3 box blur over a common.Grid, both on a
// single goroutine and split by rows across a fixed number of workers.
//
// Only interior pixels are filtered. Row 0, row Height-1, column 0 and
// column Width-1 of the output keep whatever value they held before the call.
package blur

import (
	"errors"
	"fmt"

	"go-boxblur/pkg/common"
)

var (
	ErrInvalidWorkers    = errors.New("worker count must be positive")
	ErrDimensionMismatch = errors.New("input and output dimensions differ")
	ErrAliased           = errors.New("input and output share storage")
)

// Mean3x3 returns the truncated mean of the 3x3 neighborhood centered at
// (y, x). The caller guarantees 1 <= y <= Height-2 and 1 <= x <= Width-2.
func Mean3x3(in *common.Grid, y, x int) int {
	w := in.Width
	above := in.Pix[(y-1)*w+x-1 : (y-1)*w+x+2]
	row := in.Pix[y*w+x-1 : y*w+x+2]
	below := in.Pix[(y+1)*w+x-1 : (y+1)*w+x+2]

	sum := above[0] + above[1] + above[2] +
		row[0] + row[1] + row[2] +
		below[0] + below[1] + below[2]
	return sum / 9
}

// blurRows filters columns [1, Width-1) of rows [start, end), clamped to the
// interior rows.
func blurRows(in, out *common.Grid, start, end int) {
	start = max(start, 1)
	end = min(end, in.Height-1)
	for y := start; y < end; y++ {
		dst := out.Row(y)
		for x := 1; x < in.Width-1; x++ {
			dst[x] = Mean3x3(in, y, x)
		}
	}
}

// Sequential blurs in into out on the calling goroutine.
func Sequential(in, out *common.Grid) error {
	if err := checkBuffers(in, out); err != nil {
		return err
	}
	if !hasInterior(in) {
		return nil
	}
	blurRows(in, out, 1, in.Height-1)
	return nil
}

// Run picks the sequential path for a single worker and Parallel otherwise.
func Run(in, out *common.Grid, workers int) error {
	if workers == 1 {
		return Sequential(in, out)
	}
	return Parallel(in, out, workers)
}

func checkBuffers(in, out *common.Grid) error {
	if err := in.Check(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := out.Check(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if in.Width != out.Width || in.Height != out.Height {
		return fmt.Errorf("%w: in %s, out %s", ErrDimensionMismatch, in.Size(), out.Size())
	}
	if in.Overlaps(out) {
		return ErrAliased
	}
	return nil
}

func hasInterior(g *common.Grid) bool {
	return g.Width >= 3 && g.Height >= 3
}
