package encode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"filmpress/internal/config"
	"filmpress/internal/fileutil"
	"filmpress/internal/hardware"
	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/media/ffprobe"
	"filmpress/internal/media/sidecar"
	"filmpress/internal/services"
)

// Result describes a finished rendition, probed from the output file
// rather than inferred from the request.
type Result struct {
	OutputPath      string
	Width           int
	Height          int
	Codec           string
	Backend         hardware.Backend
	DurationSeconds float64
}

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Coordinator drives one encode end to end: staging temp, ffmpeg run with
// at most one backend fallback, output validation, and the final move into
// the companion directory.
type Coordinator struct {
	cfg       *config.Config
	target    media.TargetProfile
	runner    Runner
	probe     probeFunc
	freeBytes func(path string) (uint64, error)
	logger    *slog.Logger

	mu      sync.RWMutex
	profile hardware.Profile
}

// NewCoordinator wires a coordinator against the real encoder binary. The
// hardware profile decides the backend ladder for every file of the run.
func NewCoordinator(cfg *config.Config, profile hardware.Profile, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		target:    cfg.Target(),
		profile:   profile,
		runner:    NewRunner(),
		probe:     ffprobe.Inspect,
		freeBytes: freeBytes,
		logger:    logging.NewComponentLogger(logger, "encode"),
	}
}

// Encode produces the preview rendition for source. The encoder writes to a
// staging temp first; only a validated output is moved next to the source,
// so a crash never leaves a partial rendition in the companion directory.
//
// A failure on an accelerated backend is retried exactly once on the next
// backend in the ladder. Context cancellation is never retried.
func (c *Coordinator) Encode(ctx context.Context, source *media.SourceVideo) (*Result, error) {
	outputPath := sidecar.PreviewPath(source.Path)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrExecution, "encode", "ensure companion directory", "Failed to create rendition directory", err)
	}
	if err := c.ensureFreeSpace(); err != nil {
		return nil, err
	}

	// Snapshot the ladder so a concurrent re-probe cannot change it between
	// the first attempt and the fallback.
	profile := c.currentProfile()
	backend := profile.Primary()
	// Codecs without fixed-function encoder variants run in software no
	// matter what the probe found; the accelerated command shapes cannot
	// feed hardware frames to a software encoder.
	if !c.target.Video.Codec.SupportsHardware() {
		backend = hardware.BackendSoftware
	}
	for attempt := 1; ; attempt++ {
		tempPath := c.tempPath(source.Path)
		plan := PlanFor(source, c.target, backend, tempPath, c.cfg.Encoding.Threads)
		logger := logging.WithContext(ctx, c.logger).With(
			logging.String(logging.FieldBackend, string(backend)),
			logging.String("encoder", plan.VideoEncoder),
		)
		logger.Info("starting encode",
			logging.Int("height", plan.Height),
			logging.String("frame_rate", plan.FrameRate.String()),
			logging.Int("video_bitrate_kbps", plan.VideoBitrateKbps))

		runErr := c.runner.Run(ctx, c.cfg.FFmpegBinary(), plan.Args())
		if runErr == nil {
			probed, validateErr := c.validate(ctx, tempPath)
			if validateErr == nil {
				return c.finalize(tempPath, outputPath, backend, probed, logger)
			}
			runErr = validateErr
		}
		_ = os.Remove(tempPath)

		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrExecution, "encode", "run encoder", "Encode cancelled", runErr)
		}
		next, ok := profile.Next(backend)
		if !ok || attempt >= 2 {
			return nil, services.Wrap(services.ErrExecution, "encode", "run encoder",
				fmt.Sprintf("Encode failed on %s with no backend left to try", backend), runErr)
		}
		logger.Warn("encode failed, falling back",
			logging.String("fallback", string(next)),
			logging.Error(runErr))
		backend = next
	}
}

// SetProfile replaces the backend ladder for subsequent encodes. The daemon
// calls this after a device hotplug re-probe; encodes already in flight keep
// the ladder they started with.
func (c *Coordinator) SetProfile(profile hardware.Profile) {
	c.mu.Lock()
	c.profile = profile
	c.mu.Unlock()
}

func (c *Coordinator) currentProfile() hardware.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// validate probes the staged output and rejects anything a player could not
// open: missing or empty files, no video stream, or a zero duration.
func (c *Coordinator) validate(ctx context.Context, path string) (ffprobe.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ffprobe.Result{}, fmt.Errorf("staged output missing: %w", err)
	}
	if info.Size() == 0 {
		return ffprobe.Result{}, fmt.Errorf("staged output %s is empty", filepath.Base(path))
	}
	probed, err := c.probe(ctx, c.cfg.FFprobeBinary(), path)
	if err != nil {
		return ffprobe.Result{}, fmt.Errorf("probe staged output: %w", err)
	}
	if probed.FirstVideoStream() == nil {
		return ffprobe.Result{}, fmt.Errorf("staged output has no video stream")
	}
	if probed.DurationSeconds() <= 0 {
		return ffprobe.Result{}, fmt.Errorf("staged output reports zero duration")
	}
	return probed, nil
}

func (c *Coordinator) finalize(tempPath, outputPath string, backend hardware.Backend, probed ffprobe.Result, logger *slog.Logger) (*Result, error) {
	if err := fileutil.MoveFile(tempPath, outputPath); err != nil {
		_ = os.Remove(tempPath)
		return nil, services.Wrap(services.ErrExecution, "encode", "finalize rendition", "Failed to move rendition into companion directory", err)
	}
	stream := probed.FirstVideoStream()
	result := &Result{
		OutputPath:      outputPath,
		Width:           stream.Width,
		Height:          stream.Height,
		Codec:           stream.CodecName,
		Backend:         backend,
		DurationSeconds: probed.DurationSeconds(),
	}
	logger.Info("encode finished",
		logging.String(logging.FieldOutputPath, outputPath),
		logging.Int("width", result.Width),
		logging.Int("height", result.Height),
		logging.Float64("duration_seconds", result.DurationSeconds))
	return result, nil
}

// tempPath builds a unique staging location for one attempt. The source
// stem is kept so an operator can tell in-flight encodes apart.
func (c *Coordinator) tempPath(sourcePath string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "rendition"
	}
	name := fmt.Sprintf("%s.%s.%s", stem, uuid.NewString(), c.cfg.Output.Container)
	return filepath.Join(c.cfg.Paths.StagingDir, name)
}

func (c *Coordinator) ensureFreeSpace() error {
	floor := c.cfg.Output.MinFreeMB
	if floor <= 0 {
		return nil
	}
	free, err := c.freeBytes(c.cfg.Paths.StagingDir)
	if err != nil {
		c.logger.Warn("staging free-space check unavailable", logging.Error(err))
		return nil
	}
	required := uint64(floor) * 1024 * 1024
	if free < required {
		return services.Wrap(services.ErrExecution, "encode", "check staging space",
			fmt.Sprintf("Staging volume has %d MB free, floor is %d MB", free/(1024*1024), floor), nil)
	}
	return nil
}

func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
