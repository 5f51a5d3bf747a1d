package hardware

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"

	"filmpress/internal/logging"
	"filmpress/internal/media"
)

const fullEncoderListing = ` V..... h264_qsv             Intel QSV H.264 encoder
 V..... hevc_qsv             Intel QSV HEVC encoder
 V..... h264_vaapi           VAAPI H.264 encoder
 V..... hevc_vaapi           VAAPI HEVC encoder
 V..... h264_v4l2m2m         V4L2 mem2mem H.264 encoder
`

func newTestProber(vendorID, modelName string, deviceExists bool, encoders string, encodersErr error) *Prober {
	return &Prober{
		ffmpegBinary: "ffmpeg",
		enabled:      true,
		logger:       logging.NewNop(),
		cpuInfo: func(context.Context) ([]cpu.InfoStat, error) {
			return []cpu.InfoStat{{VendorID: vendorID, ModelName: modelName}}, nil
		},
		cpuCounts: func(context.Context, bool) (int, error) {
			return 8, nil
		},
		deviceExists: func(string) bool { return deviceExists },
		listEncoders: func(context.Context, string) (string, error) {
			return encoders, encodersErr
		},
	}
}

func TestProbeVendorLadders(t *testing.T) {
	cases := []struct {
		name     string
		vendorID string
		model    string
		want     []Backend
	}{
		{"intel", "GenuineIntel", "Intel(R) Celeron(R) J4125", []Backend{BackendQSV, BackendVAAPI, BackendSoftware}},
		{"amd", "AuthenticAMD", "AMD Ryzen Embedded R1600", []Backend{BackendVAAPI, BackendSoftware}},
		{"arm", "ARM", "Realtek RTD1296", []Backend{BackendV4L2M2M, BackendSoftware}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProber(tc.vendorID, tc.model, true, fullEncoderListing, nil)
			profile := p.Probe(context.Background())
			if !reflect.DeepEqual(profile.Backends, tc.want) {
				t.Fatalf("unexpected ladder: got %v want %v", profile.Backends, tc.want)
			}
			if profile.Cores != 8 {
				t.Fatalf("unexpected core count: %d", profile.Cores)
			}
		})
	}
}

func TestProbeUnknownVendorIsSoftwareOnly(t *testing.T) {
	if strings.Contains(runtime.GOARCH, "arm") {
		t.Skip("unknown-vendor detection falls through to the host architecture")
	}
	p := newTestProber("Mystery Silicon", "Quantum 9000", true, fullEncoderListing, nil)
	profile := p.Probe(context.Background())
	if profile.Vendor != VendorUnknown {
		t.Fatalf("unexpected vendor: %s", profile.Vendor)
	}
	if !reflect.DeepEqual(profile.Backends, []Backend{BackendSoftware}) {
		t.Fatalf("unexpected ladder: %v", profile.Backends)
	}
}

func TestProbeSkipsMissingDevice(t *testing.T) {
	p := newTestProber("GenuineIntel", "Intel(R) Pentium(R) Silver", false, fullEncoderListing, nil)
	profile := p.Probe(context.Background())
	if !reflect.DeepEqual(profile.Backends, []Backend{BackendSoftware}) {
		t.Fatalf("expected software-only ladder without device node, got %v", profile.Backends)
	}
}

func TestProbeHonorsEncoderListing(t *testing.T) {
	listing := " V..... h264_vaapi           VAAPI H.264 encoder\n"
	p := newTestProber("GenuineIntel", "Intel(R) Core(TM) i5", true, listing, nil)
	profile := p.Probe(context.Background())
	if !reflect.DeepEqual(profile.Backends, []Backend{BackendVAAPI, BackendSoftware}) {
		t.Fatalf("expected qsv filtered out by encoder listing, got %v", profile.Backends)
	}
}

func TestProbeListingUnavailableUsesDeviceCheckOnly(t *testing.T) {
	p := newTestProber("GenuineIntel", "Intel(R) Core(TM) i5", true, "", errors.New("ffmpeg not found"))
	profile := p.Probe(context.Background())
	if !reflect.DeepEqual(profile.Backends, []Backend{BackendQSV, BackendVAAPI, BackendSoftware}) {
		t.Fatalf("expected full ladder when listing unavailable, got %v", profile.Backends)
	}
}

func TestProbeDisabledSkipsDetection(t *testing.T) {
	touched := false
	p := newTestProber("GenuineIntel", "Intel(R) Core(TM) i5", true, fullEncoderListing, nil)
	p.enabled = false
	p.deviceExists = func(string) bool {
		touched = true
		return true
	}
	profile := p.Probe(context.Background())
	if !reflect.DeepEqual(profile.Backends, []Backend{BackendSoftware}) {
		t.Fatalf("expected software-only ladder when disabled, got %v", profile.Backends)
	}
	if touched {
		t.Fatal("expected device probing to be skipped when disabled")
	}
}

func TestProbeSurvivesCPUFailure(t *testing.T) {
	p := newTestProber("", "", true, fullEncoderListing, nil)
	p.cpuInfo = func(context.Context) ([]cpu.InfoStat, error) {
		return nil, errors.New("cpuinfo unavailable")
	}
	p.cpuCounts = func(context.Context, bool) (int, error) {
		return 0, errors.New("count unavailable")
	}
	profile := p.Probe(context.Background())
	if profile.Cores < 1 {
		t.Fatalf("expected at least one core, got %d", profile.Cores)
	}
	if len(profile.Backends) == 0 || profile.Backends[len(profile.Backends)-1] != BackendSoftware {
		t.Fatalf("expected ladder ending in software, got %v", profile.Backends)
	}
}

func TestProfilePrimaryAndNext(t *testing.T) {
	profile := Profile{Backends: []Backend{BackendQSV, BackendVAAPI, BackendSoftware}}
	if profile.Primary() != BackendQSV {
		t.Fatalf("unexpected primary: %s", profile.Primary())
	}
	if next, ok := profile.Next(BackendQSV); !ok || next != BackendVAAPI {
		t.Fatalf("unexpected next after qsv: %s %v", next, ok)
	}
	if next, ok := profile.Next(BackendVAAPI); !ok || next != BackendSoftware {
		t.Fatalf("unexpected next after vaapi: %s %v", next, ok)
	}
	if _, ok := profile.Next(BackendSoftware); ok {
		t.Fatal("expected no fallback after software")
	}
	if _, ok := profile.Next(BackendV4L2M2M); ok {
		t.Fatal("expected no fallback for unlisted backend")
	}
	if (Profile{}).Primary() != BackendSoftware {
		t.Fatal("expected empty profile to default to software")
	}
}

func TestDetectVendor(t *testing.T) {
	cases := []struct {
		vendorID string
		model    string
		arch     string
		want     Vendor
	}{
		{"GenuineIntel", "", "amd64", VendorIntel},
		{"", "Intel(R) Atom(TM) CPU", "amd64", VendorIntel},
		{"AuthenticAMD", "", "amd64", VendorAMD},
		{"", "AMD GX-420CA", "amd64", VendorAMD},
		{"", "", "arm64", VendorARM},
		{"", "", "aarch64", VendorARM},
		{"ARM", "Cortex-A53", "amd64", VendorARM},
		{"", "", "amd64", VendorUnknown},
		{"", "", "riscv64", VendorUnknown},
	}
	for _, tc := range cases {
		if got := detectVendor(tc.vendorID, tc.model, tc.arch); got != tc.want {
			t.Fatalf("detectVendor(%q, %q, %q) = %s, want %s", tc.vendorID, tc.model, tc.arch, got, tc.want)
		}
	}
}

func TestBackendHelpers(t *testing.T) {
	if BackendQSV.DevicePath() != "/dev/dri/renderD128" || BackendVAAPI.DevicePath() != "/dev/dri/renderD128" {
		t.Fatal("unexpected render node path")
	}
	if BackendV4L2M2M.DevicePath() != "/dev/video10" {
		t.Fatal("unexpected v4l2 device path")
	}
	if BackendSoftware.DevicePath() != "" {
		t.Fatal("software backend has no device")
	}
	if !BackendQSV.Accelerated() || BackendSoftware.Accelerated() {
		t.Fatal("unexpected acceleration flags")
	}
	if got, ok := ParseBackend(" QSV "); !ok || got != BackendQSV {
		t.Fatalf("ParseBackend failed: %q %v", got, ok)
	}
	if _, ok := ParseBackend("nvenc"); ok {
		t.Fatal("expected unknown backend to be rejected")
	}
}

func TestEncoderFor(t *testing.T) {
	cases := []struct {
		backend Backend
		codec   media.VideoCodec
		want    string
	}{
		{BackendQSV, media.CodecH264, "h264_qsv"},
		{BackendVAAPI, media.CodecHEVC, "hevc_vaapi"},
		{BackendV4L2M2M, media.CodecH264, "h264_v4l2m2m"},
		{BackendSoftware, media.CodecH264, "libx264"},
		{BackendQSV, media.CodecVP9, "libvpx-vp9"},
	}
	for _, tc := range cases {
		if got := tc.backend.EncoderFor(tc.codec); got != tc.want {
			t.Fatalf("EncoderFor(%s, %s) = %q, want %q", tc.backend, tc.codec, got, tc.want)
		}
	}
}
