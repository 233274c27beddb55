package plan

import (
	"testing"

	"github.com/hanasu-app/hanasu/internal/catalog"
	"github.com/hanasu-app/hanasu/internal/domain"
)

func TestCoerceDuration(t *testing.T) {
	options := []int{10, 40, 60, 90, 120}
	tests := []struct {
		want, expect int
	}{
		{60, 60},
		{45, 40},
		{200, 120},
		{1, 10},
	}
	for _, tt := range tests {
		if got := CoerceDuration(tt.want, options); got != tt.expect {
			t.Errorf("CoerceDuration(%d) = %d, want %d", tt.want, got, tt.expect)
		}
	}
	if got := CoerceDuration(37, nil); got != 37 {
		t.Errorf("CoerceDuration with no options = %d, want passthrough", got)
	}
}

func TestResolveUsesSettingsSnapshot(t *testing.T) {
	r := NewResolver(ForCourse("pro"))
	r.SetSettings(Settings{MaxTime: 90, TimerType: "countdown", ForceEnd: "off", Transcript: "on"})

	cfg := r.Resolve(catalog.LevelBeginner)
	if cfg.LimitSeconds != 90 {
		t.Errorf("LimitSeconds = %d, want 90", cfg.LimitSeconds)
	}
	if cfg.Presentation != domain.CountDown {
		t.Errorf("Presentation = %q, want countdown", cfg.Presentation)
	}
	if cfg.ForceCutoff {
		t.Error("ForceCutoff should be off")
	}
	if !cfg.ShowTranscript {
		t.Error("ShowTranscript should be on")
	}
}

func TestResolveSpecialLevelPinsDuration(t *testing.T) {
	r := NewResolver(ForCourse("pro"))
	r.SetSettings(Settings{MaxTime: 120, TimerType: "countup", ForceEnd: "on", Transcript: "on"})

	if cfg := r.Resolve(catalog.LevelTenSecond); cfg.LimitSeconds != 10 {
		t.Errorf("10s level LimitSeconds = %d, want 10", cfg.LimitSeconds)
	}
	if cfg := r.Resolve(catalog.LevelInterview40); cfg.LimitSeconds != 40 {
		t.Errorf("40s level LimitSeconds = %d, want 40", cfg.LimitSeconds)
	}
}

func TestResolveFreeTierLocksCutoff(t *testing.T) {
	r := NewResolver(ForCourse("free"))
	r.SetSettings(Settings{MaxTime: 90, TimerType: "countup", ForceEnd: "off", Transcript: "on"})

	cfg := r.Resolve(catalog.LevelBeginner)
	// 90 is not an entitled option on the free tier.
	if cfg.LimitSeconds != 60 {
		t.Errorf("LimitSeconds = %d, want coerced 60", cfg.LimitSeconds)
	}
	if !cfg.ForceCutoff {
		t.Error("free tier locks forced cutoff on regardless of the setting")
	}
}

func TestResolveTranscriptionDisallowed(t *testing.T) {
	lim := ForCourse("standard")
	lim.AllowTranscription = false
	r := NewResolver(lim)
	r.SetSettings(Settings{MaxTime: 60, TimerType: "countup", ForceEnd: "on", Transcript: "on"})

	if cfg := r.Resolve(catalog.LevelBeginner); cfg.ShowTranscript {
		t.Error("ShowTranscript must be off when the plan disallows transcription")
	}
}
