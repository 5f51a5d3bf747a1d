package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution is a named output size from the standard ladder.
type Resolution struct {
	Name   string
	Width  int
	Height int
}

// resolutionLadder is ordered smallest to largest; lookups scan it in order.
var resolutionLadder = []Resolution{
	{Name: "144p", Width: 256, Height: 144},
	{Name: "240p", Width: 426, Height: 240},
	{Name: "360p", Width: 640, Height: 360},
	{Name: "480p", Width: 854, Height: 480},
	{Name: "720p", Width: 1280, Height: 720},
	{Name: "1080p", Width: 1920, Height: 1080},
	{Name: "1440p", Width: 2560, Height: 1440},
	{Name: "2160p", Width: 3840, Height: 2160},
}

// Resolutions returns the ladder ordered smallest to largest.
func Resolutions() []Resolution {
	cp := make([]Resolution, len(resolutionLadder))
	copy(cp, resolutionLadder)
	return cp
}

// ParseResolution accepts ladder names with or without the trailing "p"
// ("480p", "480", "1080P").
func ParseResolution(value string) (Resolution, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimSuffix(normalized, "p")
	if normalized == "" {
		return Resolution{}, false
	}
	height, err := strconv.Atoi(normalized)
	if err != nil {
		return Resolution{}, false
	}
	for _, res := range resolutionLadder {
		if res.Height == height {
			return res, true
		}
	}
	return Resolution{}, false
}

// ResolutionForDimensions returns the ladder entry matching width and height
// exactly, if any.
func ResolutionForDimensions(width, height int) (Resolution, bool) {
	for _, res := range resolutionLadder {
		if res.Width == width && res.Height == height {
			return res, true
		}
	}
	return Resolution{}, false
}

func (r Resolution) String() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}
