package blur

import "fmt"

// RowRange is the half-open row interval [Start, End) owned by one worker.
type RowRange struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r RowRange) Len() int {
	return r.End - r.Start
}

// Partition splits [0, height) into workers contiguous ranges of
// height/workers rows each. The last range runs to height and absorbs the
// remainder, so when workers > height every range but the last is empty.
func Partition(height, workers int) ([]RowRange, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, workers)
	}
	if height < 0 {
		height = 0
	}

	chunk := height / workers
	ranges := make([]RowRange, workers)
	for k := range ranges {
		ranges[k] = RowRange{Start: k * chunk, End: (k + 1) * chunk}
	}
	ranges[workers-1].End = height
	return ranges, nil
}
