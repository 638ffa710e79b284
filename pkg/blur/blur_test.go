package blur

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"go-boxblur/pkg/common"
)

func newGrid(t *testing.T, width, height int) *common.Grid {
	t.Helper()
	g, err := common.NewGrid(common.Size{Width: width, Height: height})
	require.NoError(t, err)
	return g
}

func randomGrid(t *testing.T, width, height int, seed uint64) *common.Grid {
	t.Helper()
	g := newGrid(t, width, height)
	g.FillRandom(seed)
	return g
}

func TestMean3x3Sample(t *testing.T) {
	in, err := common.GridFromRows([][]int{
		{0, 0, 0, 0, 0},
		{0, 1, 2, 3, 0},
		{0, 4, 5, 6, 0},
		{0, 7, 8, 9, 0},
		{0, 0, 0, 0, 0},
	})
	require.NoError(t, err)
	require.Equal(t, 5, Mean3x3(in, 2, 2))

	out := newGrid(t, 5, 5)
	require.NoError(t, Sequential(in, out))
	require.Equal(t, 5, out.At(2, 2))
	// (0+0+0+0+1+2+0+4+5)/9 = 12/9 truncates to 1
	require.Equal(t, 1, out.At(1, 1))
}

func TestMean3x3Truncates(t *testing.T) {
	in := newGrid(t, 3, 3)
	in.Fill(1)
	in.Set(1, 1, 9) // sum 17
	require.Equal(t, 1, Mean3x3(in, 1, 1))
}

func TestUniformImage(t *testing.T) {
	for _, c := range []int{0, 1, 128, 255} {
		in := newGrid(t, 17, 11)
		in.Fill(c)
		for _, workers := range []int{1, 3} {
			out := newGrid(t, 17, 11)
			require.NoError(t, Run(in, out, workers))
			for y := 1; y < 10; y++ {
				for x := 1; x < 16; x++ {
					if got := out.At(y, x); got != c {
						t.Fatalf("c=%d workers=%d: out(%d,%d) = %d", c, workers, y, x, got)
					}
				}
			}
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	sizes := []common.Size{{3, 3}, {4, 7}, {64, 64}, {101, 37}, {7, 200}}
	for _, size := range sizes {
		in := randomGrid(t, size.Width, size.Height, uint64(size.Pixels()))
		want := newGrid(t, size.Width, size.Height)
		require.NoError(t, Sequential(in, want))

		for _, workers := range []int{1, 2, 3, 4, 8, size.Height - 1, size.Height, size.Height + 5} {
			if workers < 1 {
				continue
			}
			t.Run(fmt.Sprintf("%s/w%d", size, workers), func(t *testing.T) {
				got := newGrid(t, size.Width, size.Height)
				require.NoError(t, Parallel(in, got, workers))
				if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
					t.Errorf("parallel output differs (-sequential +parallel):\n%s", diff)
				}
			})
		}
	}
}

func TestBorderPassthrough(t *testing.T) {
	const sentinel = -1
	in := randomGrid(t, 23, 19, 7)

	run := map[string]func(in, out *common.Grid) error{
		"sequential": Sequential,
		"parallel4": func(in, out *common.Grid) error {
			return Parallel(in, out, 4)
		},
		"parallel19": func(in, out *common.Grid) error {
			return Parallel(in, out, 19)
		},
	}
	for name, fn := range run {
		t.Run(name, func(t *testing.T) {
			out := newGrid(t, 23, 19)
			out.Fill(sentinel)
			require.NoError(t, fn(in, out))

			for x := 0; x < out.Width; x++ {
				require.Equal(t, sentinel, out.At(0, x))
				require.Equal(t, sentinel, out.At(out.Height-1, x))
			}
			for y := 0; y < out.Height; y++ {
				require.Equal(t, sentinel, out.At(y, 0))
				require.Equal(t, sentinel, out.At(y, out.Width-1))
			}
			for y := 1; y < out.Height-1; y++ {
				for x := 1; x < out.Width-1; x++ {
					require.NotEqual(t, sentinel, out.At(y, x))
				}
			}
		})
	}
}

func TestDegenerateSizesAreNoOps(t *testing.T) {
	for _, size := range []common.Size{{2, 2}, {2, 10}, {10, 2}, {1, 1}, {1, 5}, {5, 1}} {
		in := randomGrid(t, size.Width, size.Height, 3)
		out := newGrid(t, size.Width, size.Height)
		out.Fill(42)
		before := out.Clone()

		require.NoError(t, Sequential(in, out))
		require.True(t, before.Equal(out), "sequential touched %s", size)
		require.NoError(t, Parallel(in, out, 2))
		require.True(t, before.Equal(out), "parallel touched %s", size)
	}
}

func TestSequentialIdempotent(t *testing.T) {
	in := randomGrid(t, 40, 30, 11)
	snapshot := in.Clone()
	out := newGrid(t, 40, 30)

	require.NoError(t, Sequential(in, out))
	first := out.Clone()
	out.Reset()
	require.NoError(t, Sequential(in, out))

	require.True(t, first.Equal(out))
	require.True(t, snapshot.Equal(in), "input modified")
}

func TestInvalidWorkers(t *testing.T) {
	in := randomGrid(t, 8, 8, 1)
	out := newGrid(t, 8, 8)
	for _, w := range []int{0, -1, -100} {
		require.ErrorIs(t, Parallel(in, out, w), ErrInvalidWorkers)
		require.ErrorIs(t, Run(in, out, w), ErrInvalidWorkers)
	}
	// Rejected even when there is nothing to blur.
	tiny := newGrid(t, 2, 2)
	require.ErrorIs(t, Parallel(tiny, newGrid(t, 2, 2), 0), ErrInvalidWorkers)
}

func TestBufferChecks(t *testing.T) {
	in := randomGrid(t, 8, 8, 1)

	require.ErrorIs(t, Sequential(in, newGrid(t, 8, 9)), ErrDimensionMismatch)
	require.ErrorIs(t, Parallel(in, newGrid(t, 9, 8), 2), ErrDimensionMismatch)

	require.ErrorIs(t, Sequential(in, in), ErrAliased)
	view := &common.Grid{Pix: in.Pix, Width: in.Width, Height: in.Height}
	require.ErrorIs(t, Parallel(in, view, 2), ErrAliased)

	// Shifted by one row over the same backing slice.
	backing := make([]int, 72)
	shiftedIn := &common.Grid{Pix: backing[:64], Width: 8, Height: 8}
	shiftedOut := &common.Grid{Pix: backing[8:72], Width: 8, Height: 8}
	require.ErrorIs(t, Sequential(shiftedIn, shiftedOut), ErrAliased)
	require.ErrorIs(t, Parallel(shiftedIn, shiftedOut, 4), ErrAliased)
	require.ErrorIs(t, Parallel(shiftedOut, shiftedIn, 4), ErrAliased)

	short := &common.Grid{Pix: make([]int, 10), Width: 8, Height: 8}
	require.ErrorIs(t, Sequential(short, newGrid(t, 8, 8)), common.ErrInvalidSize)
	require.ErrorIs(t, Parallel(in, short, 2), common.ErrInvalidSize)
}

func TestParallelDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })

	in := randomGrid(t, 10, 10, 1)
	require.NoError(t, Parallel(in, newGrid(t, 10, 10), 3))

	got := buf.String()
	require.True(t, strings.Contains(got, "plan=\"[0,3) [3,6) [6,10)\""), got)
	require.True(t, strings.Contains(got, "parallel joined"), got)
}

func TestDefaultLoggerSilent(t *testing.T) {
	SetLogger(nil)
	require.False(t, Logger().Enabled(t.Context(), slog.LevelError))
}
