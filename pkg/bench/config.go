package bench

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"go-boxblur/pkg/blur"
	"go-boxblur/pkg/common"
)

// Config drives one sweep.
type Config struct {
	Sizes     []common.Size
	Workers   []int
	Repeat    int
	Seed      uint64
	Verify    bool
	OutputDir string // results file directory, empty disables the file
	RedisAddr string // empty disables publishing
}

// DefaultConfig is the standard sweep: three square images and
// 1, 2, 4 and 8 workers.
func DefaultConfig() Config {
	return Config{
		Sizes: []common.Size{
			{Width: 500, Height: 500},
			{Width: 1000, Height: 1000},
			{Width: 2000, Height: 2000},
		},
		Workers:   []int{1, 2, 4, 8},
		Repeat:    1,
		Seed:      1,
		OutputDir: "logs",
	}
}

func (c Config) Validate() error {
	if len(c.Sizes) == 0 {
		return errors.New("no image sizes configured")
	}
	for _, s := range c.Sizes {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if len(c.Workers) == 0 {
		return errors.New("no worker counts configured")
	}
	for _, w := range c.Workers {
		if w <= 0 {
			return fmt.Errorf("%w: got %d", blur.ErrInvalidWorkers, w)
		}
	}
	if c.Repeat < 1 {
		return fmt.Errorf("repeat must be at least 1, got %d", c.Repeat)
	}
	return nil
}

// ParseSizes parses a comma separated list of WxH sizes.
func ParseSizes(s string) ([]common.Size, error) {
	var sizes []common.Size
	for _, part := range splitList(s) {
		size, err := common.ParseSize(part)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

// ParseWorkers parses a comma separated list of worker counts. Duplicates are
// dropped, first occurrence wins.
func ParseWorkers(s string) ([]int, error) {
	var workers []int
	for _, part := range splitList(s) {
		w, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad worker count %q: %w", part, err)
		}
		if w <= 0 {
			return nil, fmt.Errorf("%w: got %d", blur.ErrInvalidWorkers, w)
		}
		workers = append(workers, w)
	}
	return lo.Uniq(workers), nil
}

func splitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	return lo.Compact(parts)
}
