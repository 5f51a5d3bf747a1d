package preflight

import (
	"context"

	"filmpress/internal/config"
	"filmpress/internal/deps"
)

// Result reports the outcome of a single readiness check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every readiness check against the given configuration and
// returns the results in display order. Library roots are checked as-is;
// the staging, state, and log directories are created first when missing,
// matching what the daemon does on startup.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	results := make([]Result, 0, len(cfg.Paths.LibraryDirs)+8)

	for _, root := range cfg.Paths.LibraryDirs {
		results = append(results, CheckDirectoryAccess("Library root", root))
	}

	if err := cfg.EnsureDirectories(); err != nil {
		results = append(results, Result{Name: "Working directories", Detail: err.Error()})
	} else {
		results = append(results,
			CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
			CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
			CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		)
	}

	for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
		results = append(results, binaryResult(status))
	}

	results = append(results, CheckDatabase(ctx, cfg))
	results = append(results, CheckHardware(ctx, cfg))

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

func binaryResult(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available}
	switch {
	case !status.Available:
		result.Detail = status.Detail
	case status.Version != "":
		result.Detail = status.Version
	default:
		result.Detail = status.Command
	}
	return result
}
