package media

import (
	"fmt"
	"math"
)

// FrameRate is a frame rate expressed as an exact rational so NTSC rates
// (24000/1001 and friends) survive comparison and display.
type FrameRate struct {
	Num int
	Den int
}

var (
	Rate23_976 = FrameRate{24000, 1001}
	Rate24     = FrameRate{24, 1}
	Rate25     = FrameRate{25, 1}
	Rate29_97  = FrameRate{30000, 1001}
	Rate30     = FrameRate{30, 1}
	Rate50     = FrameRate{50, 1}
	Rate59_94  = FrameRate{60000, 1001}
	Rate60     = FrameRate{60, 1}
	Rate120    = FrameRate{120, 1}
	Rate144    = FrameRate{144, 1}
	Rate240    = FrameRate{240, 1}
)

// frameRateLadder is ordered ascending for nearest-match lookups.
var frameRateLadder = []FrameRate{
	Rate23_976, Rate24, Rate25, Rate29_97, Rate30,
	Rate50, Rate59_94, Rate60, Rate120, Rate144, Rate240,
}

// previewRates caps high-rate sources for preview renditions; rates at or
// below 30 fps pass through unchanged.
var previewRates = map[FrameRate]FrameRate{
	Rate50:    Rate25,
	Rate59_94: Rate29_97,
	Rate60:    Rate30,
	Rate120:   Rate30,
	Rate144:   Rate24,
	Rate240:   Rate30,
}

// NearestFrameRate snaps a measured rate onto the closest ladder entry.
// Non-positive input falls back to 30 fps.
func NearestFrameRate(fps float64) FrameRate {
	if fps <= 0 {
		return Rate30
	}
	best := frameRateLadder[0]
	bestDelta := math.Abs(fps - best.Float())
	for _, rate := range frameRateLadder[1:] {
		delta := math.Abs(fps - rate.Float())
		if delta < bestDelta {
			best = rate
			bestDelta = delta
		}
	}
	return best
}

// ForPreview returns the down-converted rate used for preview output.
func (r FrameRate) ForPreview() FrameRate {
	if mapped, ok := previewRates[r]; ok {
		return mapped
	}
	return r
}

// Float returns the rate as frames per second.
func (r FrameRate) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Truncated returns the whole-frame rate handed to the encoder command line.
func (r FrameRate) Truncated() int {
	return int(r.Float())
}

func (r FrameRate) String() string {
	value := r.Float()
	if value == math.Trunc(value) {
		return fmt.Sprintf("%d", int(value))
	}
	return fmt.Sprintf("%.2f", value)
}
