package decision_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"filmpress/internal/decision"
	"filmpress/internal/media"
	"filmpress/internal/store"
)

func hdTarget() media.TargetProfile {
	return media.TargetProfile{
		Video: media.TargetVideo{
			Codec:       media.CodecH264,
			Profile:     media.ProfileHigh,
			Width:       1280,
			Height:      720,
			BitrateKbps: 2500,
		},
		Audio: media.TargetAudio{
			Codec:       media.AudioAAC,
			Channels:    2,
			BitrateKbps: 128,
		},
		Container: "mp4",
	}
}

func sourceVideo(codec, profile string, width, height int, audioCodec string, channels int) *media.SourceVideo {
	source := &media.SourceVideo{
		Path: "/library/sample.mkv",
		Video: media.VideoTrack{
			Codec:   codec,
			Profile: profile,
			Width:   width,
			Height:  height,
		},
		Container: media.ContainerInfo{Format: "matroska", DurationSeconds: 120},
	}
	if audioCodec != "" {
		source.Audio = media.AudioTrack{Codec: audioCodec, Channels: channels}
	}
	return source
}

func TestDecideQualityFloor(t *testing.T) {
	engine := decision.Engine{Target: hdTarget()}

	cases := []struct {
		name       string
		source     *media.SourceVideo
		wantKind   decision.Kind
		wantReason string
	}{
		{
			name:       "low profile low resolution transcodes on profile first",
			source:     sourceVideo("h264", "Baseline", 640, 360, "aac", 2),
			wantKind:   decision.KindTranscode,
			wantReason: "profile",
		},
		{
			name:     "exceeding source is left alone",
			source:   sourceVideo("h264", "High", 1920, 1080, "aac", 2),
			wantKind: decision.KindNotRequired,
		},
		{
			name:     "exact match is left alone",
			source:   sourceVideo("h264", "High", 1280, 720, "aac", 2),
			wantKind: decision.KindNotRequired,
		},
		{
			name:       "codec mismatch",
			source:     sourceVideo("mpeg4", "Advanced Simple", 1920, 1080, "aac", 2),
			wantKind:   decision.KindTranscode,
			wantReason: "video codec",
		},
		{
			name:       "missing profile is not satisfactory",
			source:     sourceVideo("h264", "", 1920, 1080, "aac", 2),
			wantKind:   decision.KindTranscode,
			wantReason: "profile",
		},
		{
			name:       "resolution below floor",
			source:     sourceVideo("h264", "High", 854, 480, "aac", 2),
			wantKind:   decision.KindTranscode,
			wantReason: "resolution",
		},
		{
			name:     "portrait long edge counts",
			source:   sourceVideo("h264", "High", 720, 1280, "aac", 2),
			wantKind: decision.KindNotRequired,
		},
		{
			name:       "audio codec mismatch",
			source:     sourceVideo("h264", "High", 1920, 1080, "ac3", 6),
			wantKind:   decision.KindTranscode,
			wantReason: "audio codec",
		},
		{
			name:       "too few audio channels",
			source:     sourceVideo("h264", "High", 1920, 1080, "aac", 1),
			wantKind:   decision.KindTranscode,
			wantReason: "audio channels",
		},
		{
			name:     "video only source skips audio dimensions",
			source:   sourceVideo("h264", "High", 1920, 1080, "", 0),
			wantKind: decision.KindNotRequired,
		},
		{
			name:     "constrained baseline alias parses and ranks below high",
			source:   sourceVideo("h264", "Constrained Baseline", 1920, 1080, "aac", 2),
			wantKind: decision.KindTranscode,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Decide(tc.source, nil, nil, decision.FileState{})
			if got.Kind != tc.wantKind {
				t.Fatalf("unexpected kind: got %s (%s), want %s", got.Kind, got.Reason, tc.wantKind)
			}
			if tc.wantReason != "" && !strings.Contains(got.Reason, tc.wantReason) {
				t.Fatalf("expected reason mentioning %q, got %q", tc.wantReason, got.Reason)
			}
		})
	}
}

func TestDecideHEVCProfileLadder(t *testing.T) {
	target := hdTarget()
	target.Video.Codec = media.CodecHEVC
	target.Video.Profile = media.ProfileMain
	engine := decision.Engine{Target: target}

	main10 := sourceVideo("hevc", "Main 10", 1920, 1080, "aac", 2)
	if got := engine.Decide(main10, nil, nil, decision.FileState{}); got.Kind != decision.KindNotRequired {
		t.Fatalf("expected main10 to satisfy a main target, got %s (%s)", got.Kind, got.Reason)
	}

	target.Video.Profile = media.ProfileMain10
	engine = decision.Engine{Target: target}
	main := sourceVideo("hevc", "Main", 1920, 1080, "aac", 2)
	if got := engine.Decide(main, nil, nil, decision.FileState{}); got.Kind != decision.KindTranscode {
		t.Fatalf("expected main to fall short of a main10 target, got %s", got.Kind)
	}
}

func TestDecideProfileFreeTargetSkipsProfileCheck(t *testing.T) {
	target := hdTarget()
	target.Video.Codec = media.CodecVP9
	target.Video.Profile = ""
	engine := decision.Engine{Target: target}

	source := sourceVideo("vp9", "", 1920, 1080, "aac", 2)
	if got := engine.Decide(source, nil, nil, decision.FileState{}); got.Kind != decision.KindNotRequired {
		t.Fatalf("expected vp9 source to satisfy vp9 target, got %s (%s)", got.Kind, got.Reason)
	}
}

func TestDecideResolutionError(t *testing.T) {
	engine := decision.Engine{Target: hdTarget()}
	resolveErr := errors.New("ffprobe: moov atom not found")

	got := engine.Decide(nil, resolveErr, nil, decision.FileState{})
	if got.Kind != decision.KindError {
		t.Fatalf("unexpected kind: %s", got.Kind)
	}
	if !strings.Contains(got.Reason, "moov atom") {
		t.Fatalf("expected resolver error text, got %q", got.Reason)
	}
}

func TestTrackedTerminalRecords(t *testing.T) {
	engine := decision.Engine{Target: hdTarget()}
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	state := decision.FileState{Size: 1000, ModTime: now}

	for _, status := range []store.Status{store.StatusCompleted, store.StatusNotRequired} {
		prior := &store.Record{SourcePath: "/library/a.mkv", Status: status, SourceSize: 1000, SourceModifiedAt: now}
		if !engine.Tracked(prior, state) {
			t.Fatalf("expected %s record to be tracked", status)
		}
		got := engine.Decide(nil, errors.New("should not matter"), prior, state)
		if got.Kind != decision.KindAlreadyTracked {
			t.Fatalf("expected already_tracked for %s record, got %s", status, got.Kind)
		}
	}

	for _, status := range []store.Status{store.StatusPending, store.StatusInProgress, store.StatusFailed} {
		prior := &store.Record{SourcePath: "/library/a.mkv", Status: status}
		if engine.Tracked(prior, state) {
			t.Fatalf("expected %s record not to settle the file", status)
		}
	}

	if engine.Tracked(nil, state) {
		t.Fatal("expected missing record not to be tracked")
	}
}

func TestTrackedReprocessChangedSignature(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	prior := &store.Record{
		SourcePath:       "/library/a.mkv",
		Status:           store.StatusCompleted,
		SourceSize:       1000,
		SourceModifiedAt: now,
	}

	stale := decision.Engine{Target: hdTarget()}
	if !stale.Tracked(prior, decision.FileState{Size: 2000, ModTime: now.Add(time.Hour)}) {
		t.Fatal("expected changed file to stay tracked with the policy off")
	}

	reprocess := decision.Engine{Target: hdTarget(), Policy: decision.Policy{ReprocessChanged: true}}
	if reprocess.Tracked(prior, decision.FileState{Size: 2000, ModTime: now}) {
		t.Fatal("expected size change to re-open the record")
	}
	if reprocess.Tracked(prior, decision.FileState{Size: 1000, ModTime: now.Add(time.Hour)}) {
		t.Fatal("expected mtime change to re-open the record")
	}
	if !reprocess.Tracked(prior, decision.FileState{Size: 1000, ModTime: now}) {
		t.Fatal("expected unchanged file to stay tracked")
	}

	// Records without a stored signature cannot be invalidated.
	unsigned := &store.Record{SourcePath: "/library/a.mkv", Status: store.StatusCompleted}
	if !reprocess.Tracked(unsigned, decision.FileState{Size: 2000, ModTime: now}) {
		t.Fatal("expected signature-less record to stay tracked")
	}
}
