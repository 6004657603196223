package manifest

import (
	"fmt"

	"github.com/alanbriolat/stream-archiver/media"
)

const (
	DefaultMinHeight = 144
	DefaultMaxHeight = 2160
)

// Window is an inclusive range of acceptable variant heights.
type Window struct {
	MinHeight int `yaml:"min_height"`
	MaxHeight int `yaml:"max_height"`
}

func DefaultWindow() Window {
	return Window{MinHeight: DefaultMinHeight, MaxHeight: DefaultMaxHeight}
}

func (w Window) Contains(height int) bool {
	return height >= w.MinHeight && height <= w.MaxHeight
}

func (w Window) Validate() error {
	if w.MinHeight < 0 || w.MaxHeight < w.MinHeight {
		return fmt.Errorf("invalid resolution window [%d, %d]", w.MinHeight, w.MaxHeight)
	}
	return nil
}

// Select picks the tallest variant inside the window; on equal heights the earliest one wins.
func Select(variants []media.Variant, window Window) (media.Variant, error) {
	best := -1
	for i, v := range variants {
		if !window.Contains(v.Height) {
			continue
		}
		if best < 0 || v.Height > variants[best].Height {
			best = i
		}
	}
	if best < 0 {
		available := make([]int, 0, len(variants))
		for _, v := range variants {
			available = append(available, v.Height)
		}
		return media.Variant{}, &media.NoSuitableVariantError{
			MinHeight: window.MinHeight,
			MaxHeight: window.MaxHeight,
			Available: available,
		}
	}
	return variants[best], nil
}
