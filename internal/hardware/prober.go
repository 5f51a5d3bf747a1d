package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"filmpress/internal/logging"
)

// Profile describes the probed encode capabilities of the host.
type Profile struct {
	Vendor   Vendor    `json:"vendor"`
	CPUName  string    `json:"cpu_name,omitempty"`
	Cores    int       `json:"cores"`
	Backends []Backend `json:"backends"`
}

// Primary returns the preferred backend.
func (p Profile) Primary() Backend {
	if len(p.Backends) == 0 {
		return BackendSoftware
	}
	return p.Backends[0]
}

// Next returns the backend following the given one in the ladder. The
// coordinator uses it for its single fallback retry.
func (p Profile) Next(after Backend) (Backend, bool) {
	for i, backend := range p.Backends {
		if backend == after && i+1 < len(p.Backends) {
			return p.Backends[i+1], true
		}
	}
	return "", false
}

// Summary renders the profile for startup logs and CLI output.
func (p Profile) Summary() string {
	return fmt.Sprintf("%s (%d cores) | %s", p.Vendor, p.Cores, p.CPUName)
}

// Prober detects the CPU vendor and the encoder backends worth attempting.
type Prober struct {
	ffmpegBinary string
	enabled      bool
	logger       *slog.Logger

	cpuInfo      func(ctx context.Context) ([]cpu.InfoStat, error)
	cpuCounts    func(ctx context.Context, logical bool) (int, error)
	deviceExists func(path string) bool
	listEncoders func(ctx context.Context, binary string) (string, error)
}

// NewProber builds a prober for the given ffmpeg binary. With enabled false
// the probe skips device detection and reports a software-only profile.
func NewProber(ffmpegBinary string, enabled bool, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Prober{
		ffmpegBinary: ffmpegBinary,
		enabled:      enabled,
		logger:       logging.NewComponentLogger(logger, "hardware"),
		cpuInfo:      cpu.InfoWithContext,
		cpuCounts:    cpu.CountsWithContext,
		deviceExists: deviceExists,
		listEncoders: listEncoders,
	}
}

// Probe inspects the host and returns the usable backend ladder. It never
// fails; detection problems degrade toward a software-only profile.
func (p *Prober) Probe(ctx context.Context) Profile {
	profile := Profile{Vendor: VendorUnknown, CPUName: "unknown", Cores: 1}

	if infos, err := p.cpuInfo(ctx); err == nil && len(infos) > 0 {
		info := infos[0]
		if info.ModelName != "" {
			profile.CPUName = info.ModelName
		}
		profile.Vendor = detectVendor(info.VendorID, info.ModelName, runtime.GOARCH)
	} else {
		profile.Vendor = detectVendor("", "", runtime.GOARCH)
		if err != nil {
			p.logger.Warn("cpu detection failed", logging.Error(err))
		}
	}

	if count, err := p.cpuCounts(ctx, true); err == nil && count > 0 {
		profile.Cores = count
	} else if cores := runtime.NumCPU(); cores > 0 {
		profile.Cores = cores
	}

	if !p.enabled {
		profile.Backends = []Backend{BackendSoftware}
		return profile
	}

	encoders := ""
	if listing, err := p.listEncoders(ctx, p.ffmpegBinary); err == nil {
		encoders = listing
	} else {
		p.logger.Debug("encoder listing unavailable", logging.Error(err))
	}

	for _, backend := range backendPriority[profile.Vendor] {
		if backend.Accelerated() {
			if !p.deviceExists(backend.DevicePath()) {
				continue
			}
			if encoders != "" && !strings.Contains(encoders, backend.encoderMarker()) {
				continue
			}
		}
		profile.Backends = append(profile.Backends, backend)
	}
	if len(profile.Backends) == 0 || profile.Backends[len(profile.Backends)-1] != BackendSoftware {
		profile.Backends = append(profile.Backends, BackendSoftware)
	}

	p.logger.Debug("hardware profile",
		logging.String("vendor", string(profile.Vendor)),
		logging.String("cpu", profile.CPUName),
		logging.Int("cores", profile.Cores),
		logging.Bool("accelerated", p.enabled),
		logging.Any("backends", profile.Backends),
	)
	return profile
}

func deviceExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func listEncoders(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-encoders").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
