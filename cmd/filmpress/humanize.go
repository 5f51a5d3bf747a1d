package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"filmpress/internal/store"
)

// humanizeStatus turns a stored status value into a display label,
// e.g. "not_required" becomes "Not Required".
func humanizeStatus(status store.Status) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(string(status), "_", " "))
}

func humanizeSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	idx := -1
	for value >= unit && idx < len(suffixes)-1 {
		value /= unit
		idx++
	}
	return fmt.Sprintf("%.1f %s", value, suffixes[idx])
}

func humanizeDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
