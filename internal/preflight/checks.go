package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"filmpress/internal/config"
	"filmpress/internal/hardware"
	"filmpress/internal/logging"
	"filmpress/internal/store"
)

// CheckDirectoryAccess verifies the path exists, is a directory, and grants
// read, write, and traverse permission to the current user.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s does not exist", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("stat %s: %v", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a directory", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not read/write accessible: %v", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase opens the ledger the same way the daemon does and verifies
// schema and integrity, so a corrupt database surfaces here instead of
// mid-cycle.
func CheckDatabase(ctx context.Context, cfg *config.Config) Result {
	const name = "Ledger database"

	st, err := store.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed: %v", err)}
	}
	defer st.Close()

	health, err := st.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed: %v", err)}
	}
	if !health.TableExists {
		return Result{Name: name, Detail: "transcodings table is missing"}
	}
	if len(health.MissingColumns) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("schema is missing columns: %s", strings.Join(health.MissingColumns, ", "))}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: "integrity check failed"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d records)", health.DBPath, health.TotalRecords)}
}

// CheckHardware probes the encoder ladder the daemon would use. The check is
// informational and always passes; a machine without acceleration still
// encodes in software.
func CheckHardware(ctx context.Context, cfg *config.Config) Result {
	const name = "Hardware acceleration"

	prober := hardware.NewProber(cfg.FFmpegBinary(), cfg.Encoding.HardwareAcceleration, logging.NewNop())
	profile := prober.Probe(ctx)

	names := make([]string, 0, len(profile.Backends))
	for _, backend := range profile.Backends {
		names = append(names, string(backend))
	}
	detail := fmt.Sprintf("%s; ladder %s", profile.Summary(), strings.Join(names, " -> "))
	if !cfg.Encoding.HardwareAcceleration {
		detail = "disabled; " + detail
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
