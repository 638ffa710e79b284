package common

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxIntensity is the largest value a pixel may hold.
const MaxIntensity = 255

var ErrInvalidSize = errors.New("invalid image size")

// Size is an image size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseSize parses "WxH", e.g. "1000x500".
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, fmt.Errorf("%w: %q is not WxH", ErrInvalidSize, s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Size{}, fmt.Errorf("%w: bad width in %q: %v", ErrInvalidSize, s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Size{}, fmt.Errorf("%w: bad height in %q: %v", ErrInvalidSize, s, err)
	}
	size := Size{Width: width, Height: height}
	if err := size.Validate(); err != nil {
		return Size{}, err
	}
	return size, nil
}

// Validate reports whether a Grid of this size can be allocated.
func (s Size) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, s.Width, s.Height)
	}
	if s.Width > math.MaxInt/s.Height {
		return fmt.Errorf("%w: %dx%d overflows", ErrInvalidSize, s.Width, s.Height)
	}
	return nil
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Pixels returns Width*Height.
func (s Size) Pixels() int {
	return s.Width * s.Height
}

// Mode names the code path a trial ran on.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// TrialResult is one (size, workers) measurement.
type TrialResult struct {
	Size       Size            `json:"size"`
	Workers    int             `json:"workers"`
	Mode       Mode            `json:"mode"`
	Runs       []time.Duration `json:"runs"`
	Mean       float64         `json:"mean_seconds"`
	StdDev     float64         `json:"stddev_seconds"`
	Speedup    float64         `json:"speedup"`
	Efficiency float64         `json:"efficiency"`
	Verified   *bool           `json:"verified,omitempty"` // nil when not checked
	Timestamp  time.Time       `json:"timestamp"`
}
