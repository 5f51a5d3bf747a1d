package encode

import (
	"fmt"

	"filmpress/internal/hardware"
	"filmpress/internal/media"
)

// Plan carries the fully resolved parameters for one ffmpeg invocation.
// Everything source-dependent (scaling height, frame rate, channel count)
// is settled here so Args is a pure serialization step.
type Plan struct {
	SourcePath string
	OutputPath string
	Backend    hardware.Backend

	VideoEncoder     string
	VideoProfile     media.VideoProfile
	Height           int
	FrameRate        media.FrameRate
	VideoBitrateKbps int

	AudioEncoder     string
	AudioProfile     media.AACProfile
	AudioChannels    int
	AudioBitrateKbps int

	Threads int
}

// PlanFor resolves the encode parameters for a source against the target
// profile on the given backend. outputPath is the staging file the encoder
// writes; the coordinator moves it into place afterwards.
func PlanFor(source *media.SourceVideo, target media.TargetProfile, backend hardware.Backend, outputPath string, threads int) Plan {
	plan := Plan{
		SourcePath:       source.Path,
		OutputPath:       outputPath,
		Backend:          backend,
		VideoEncoder:     backend.EncoderFor(target.Video.Codec),
		Height:           target.HeightFor(source),
		FrameRate:        target.FrameRateFor(source),
		VideoBitrateKbps: target.Video.BitrateKbps,
		AudioEncoder:     target.Audio.Codec.Encoder(),
		AudioChannels:    target.ChannelsFor(source),
		AudioBitrateKbps: target.Audio.BitrateKbps,
		Threads:          threads,
	}
	// The stateless V4L2M2M encoders reject profile selection, so the flag
	// is dropped there and kept everywhere else the codec defines profiles.
	if target.Video.Codec.SupportsProfiles() && backend != hardware.BackendV4L2M2M {
		plan.VideoProfile = target.Video.Profile
	}
	if target.Audio.Codec == media.AudioAAC {
		plan.AudioProfile = target.Audio.Profile
	}
	return plan
}

// Args renders the ffmpeg argument list for the plan. Each backend has its
// own filter graph and device plumbing; the audio tail and the output path
// are shared.
func (p Plan) Args() []string {
	args := []string{"-hide_banner", "-y", "-nostdin"}

	switch p.Backend {
	case hardware.BackendQSV:
		device := p.Backend.DevicePath()
		args = append(args,
			"-init_hw_device", fmt.Sprintf("qsv=hw:%s", device),
			"-filter_hw_device", "hw",
			"-i", p.SourcePath,
			"-vf", fmt.Sprintf("format=nv12,hwupload=extra_hw_frames=64,vpp_qsv=framerate=%d:h=%d:w=trunc(oh*dar/2)*2,setsar=1", p.FrameRate.Truncated(), p.Height),
		)
		args = p.appendVideoEncoder(args)
		args = append(args,
			"-b:v", kbps(p.VideoBitrateKbps),
			"-maxrate", kbps(p.VideoBitrateKbps),
			"-vsync", "cfr",
			"-sar", "1",
			"-movflags", "+faststart",
			"-threads", fmt.Sprintf("%d", p.Threads),
		)
	case hardware.BackendVAAPI:
		device := p.Backend.DevicePath()
		args = append(args,
			"-vaapi_device", device,
			"-hwaccel", "vaapi",
			"-hwaccel_device", device,
			"-hwaccel_output_format", "vaapi",
			"-i", p.SourcePath,
			"-vf", fmt.Sprintf("scale_vaapi=w=-2:h=%d", p.Height),
			"-r", fmt.Sprintf("%d", p.FrameRate.Truncated()),
		)
		args = p.appendVideoEncoder(args)
		args = append(args,
			"-b:v", kbps(p.VideoBitrateKbps),
			"-maxrate", kbps(p.VideoBitrateKbps),
			"-vsync", "cfr",
			"-sar", "1",
			"-movflags", "+faststart",
			"-threads", fmt.Sprintf("%d", p.Threads),
		)
	case hardware.BackendV4L2M2M:
		// The memory-to-memory blocks decode and encode, so the codec name
		// appears on both sides of the input.
		args = append(args,
			"-c:v", p.VideoEncoder,
			"-i", p.SourcePath,
			"-vf", fmt.Sprintf("scale=w=-2:h=%d", p.Height),
			"-r", fmt.Sprintf("%d", p.FrameRate.Truncated()),
			"-c:v", p.VideoEncoder,
			"-pix_fmt", "nv12",
			"-b:v", kbps(p.VideoBitrateKbps),
			"-maxrate", kbps(p.VideoBitrateKbps),
			"-bufsize", kbps(p.VideoBitrateKbps*2),
			"-vsync", "cfr",
			"-sar", "1",
		)
	default:
		args = append(args,
			"-i", p.SourcePath,
			"-vf", fmt.Sprintf("scale=w=-2:h=%d", p.Height),
			"-r", fmt.Sprintf("%d", p.FrameRate.Truncated()),
		)
		args = p.appendVideoEncoder(args)
		args = append(args,
			"-b:v", kbps(p.VideoBitrateKbps),
			"-movflags", "+faststart",
		)
	}

	args = append(args, "-c:a", p.AudioEncoder)
	if p.AudioProfile != "" {
		args = append(args, "-profile:a", p.AudioProfile.EncoderProfile())
	}
	args = append(args, "-b:a", kbps(p.AudioBitrateKbps))
	if p.AudioChannels > 0 {
		args = append(args, "-ac", fmt.Sprintf("%d", p.AudioChannels))
	}

	return append(args, p.OutputPath)
}

func (p Plan) appendVideoEncoder(args []string) []string {
	args = append(args, "-c:v", p.VideoEncoder)
	if p.VideoProfile != "" {
		args = append(args, "-profile:v", string(p.VideoProfile))
	}
	return args
}

func kbps(value int) string {
	return fmt.Sprintf("%dk", value)
}
