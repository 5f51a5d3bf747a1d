// Package deps verifies the external tools the transcoder shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"filmpress/internal/config"
)

// Requirement defines an external binary filmpress relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Version     string
	Detail      string
}

// Required lists the binaries a working installation needs, resolved from
// the configured paths.
func Required(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Transcodes library files into previews",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Resolves stream metadata and validates renditions",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		status.Version = Version(resolved)
		results = append(results, status)
	}
	return results
}

// Version reports the first line of `command -version`, or an empty string
// when the binary cannot be queried. Both ffmpeg and ffprobe answer the
// flag with a one-line banner.
func Version(command string) string {
	out, err := exec.Command(command, "-version").Output() //nolint:gosec // command comes from the operator's config
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
