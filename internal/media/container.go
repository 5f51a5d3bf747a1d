package media

import "strings"

// videoExtensions lists the container extensions considered during discovery.
var videoExtensions = []string{
	"mp4", "mkv", "avi", "mov", "wmv", "flv",
	"webm", "m4v", "mpg", "mpeg", "3gp",
}

// VideoExtensions returns the discovery extension list without leading dots.
func VideoExtensions() []string {
	cp := make([]string, len(videoExtensions))
	copy(cp, videoExtensions)
	return cp
}

// IsVideoPath reports whether the path carries a known video extension.
func IsVideoPath(path string) bool {
	lowered := strings.ToLower(path)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lowered, "."+ext) {
			return true
		}
	}
	return false
}
