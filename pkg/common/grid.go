package common

import (
	"fmt"
	"math/rand/v2"
	"unsafe"
)

// Grid is a single-channel image stored as one contiguous row-major slice.
// Pixel (y, x) lives at Pix[y*Width+x].
type Grid struct {
	Pix    []int
	Width  int
	Height int
}

// NewGrid allocates a zeroed grid of the given size.
func NewGrid(size Size) (*Grid, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	return &Grid{
		Pix:    make([]int, size.Pixels()),
		Width:  size.Width,
		Height: size.Height,
	}, nil
}

// GridFromRows copies rows into a new grid. All rows must have the same length.
func GridFromRows(rows [][]int) (*Grid, error) {
	if len(rows) == 0 {
		return nil, ErrInvalidSize
	}
	g, err := NewGrid(Size{Width: len(rows[0]), Height: len(rows)})
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != g.Width {
			return nil, ErrInvalidSize
		}
		copy(g.Row(y), row)
	}
	return g, nil
}

func (g *Grid) Size() Size {
	return Size{Width: g.Width, Height: g.Height}
}

// At returns the pixel at row y, column x.
func (g *Grid) At(y, x int) int {
	return g.Pix[y*g.Width+x]
}

// Set writes the pixel at row y, column x.
func (g *Grid) Set(y, x, v int) {
	g.Pix[y*g.Width+x] = v
}

// Row returns row y as a slice sharing the grid's storage.
func (g *Grid) Row(y int) []int {
	start := y * g.Width
	return g.Pix[start : start+g.Width]
}

// Reset zeroes every pixel.
func (g *Grid) Reset() {
	clear(g.Pix)
}

// Fill sets every pixel to v.
func (g *Grid) Fill(v int) {
	for i := range g.Pix {
		g.Pix[i] = v
	}
}

// FillRandom fills the grid with values in [0, MaxIntensity] drawn from a
// PCG source seeded with seed, so the same seed always gives the same image.
func (g *Grid) FillRandom(seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range g.Pix {
		g.Pix[i] = r.IntN(MaxIntensity + 1)
	}
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	pix := make([]int, len(g.Pix))
	copy(pix, g.Pix)
	return &Grid{Pix: pix, Width: g.Width, Height: g.Height}
}

// Check reports whether Pix holds exactly Width*Height pixels.
func (g *Grid) Check() error {
	if g.Width < 0 || g.Height < 0 || len(g.Pix) != g.Width*g.Height {
		return fmt.Errorf("%w: %dx%d grid holds %d pixels", ErrInvalidSize, g.Width, g.Height, len(g.Pix))
	}
	return nil
}

// Equal reports whether both grids have the same size and pixels.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height || len(g.Pix) != len(o.Pix) {
		return false
	}
	for i, v := range g.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// Overlaps reports whether any pixel of g shares memory with a pixel of o.
func (g *Grid) Overlaps(o *Grid) bool {
	if len(g.Pix) == 0 || len(o.Pix) == 0 {
		return false
	}
	gStart, gEnd := span(g.Pix)
	oStart, oEnd := span(o.Pix)
	return gStart <= oEnd && oStart <= gEnd
}

// span returns the addresses of the first and last element of pix.
func span(pix []int) (uintptr, uintptr) {
	return uintptr(unsafe.Pointer(&pix[0])), uintptr(unsafe.Pointer(&pix[len(pix)-1]))
}
