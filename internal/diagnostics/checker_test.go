package diagnostics

import (
	"errors"
	"os"
	"testing"

	"training-kiosk/internal/domain"
)

func passingSettings() domain.Settings {
	return domain.Settings{
		APIBaseURL:       "http://localhost:8000/api",
		VideoSource:      "/training-video.mp4",
		NarrationEnabled: true,
		VoiceLocale:      "en-US",
	}
}

// TestCheckerRunAllPass validates the happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	checker := NewCheckerForTests(
		t.TempDir(),
		func(string) error { return nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(passingSettings())
	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
}

// TestCheckerRunBrokenConfig validates failure reporting.
func TestCheckerRunBrokenConfig(t *testing.T) {
	checker := NewCheckerForTests(
		t.TempDir(),
		func(string) error { return errors.New("connection refused") },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		APIBaseURL:       "not a url",
		VideoSource:      "",
		NarrationEnabled: true,
		VoiceLocale:      "english",
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}

	assertStatusByID(t, report, "api_base_url", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "backend_reachable", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "voice_config", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "video_source", domain.DiagnosticStatusFail)
}

// TestCheckerNarrationDisabledSkipsVoiceCheck keeps the check green when
// the kiosk runs silent.
func TestCheckerNarrationDisabledSkipsVoiceCheck(t *testing.T) {
	checker := NewCheckerForTests(
		t.TempDir(),
		func(string) error { return nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	settings := passingSettings()
	settings.NarrationEnabled = false
	settings.VoiceLocale = ""

	report := checker.Run(settings)
	assertStatusByID(t, report, "voice_config", domain.DiagnosticStatusPass)
}

// TestCheckerUnwritableSettingsDir validates the persistence check.
func TestCheckerUnwritableSettingsDir(t *testing.T) {
	checker := NewCheckerForTests(
		"/proc/settings",
		func(string) error { return nil },
		func(string, os.FileMode) error { return errors.New("read-only filesystem") },
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(passingSettings())
	assertStatusByID(t, report, "settings_dir", domain.DiagnosticStatusFail)
}

// TestValidLocale covers accepted language tag shapes.
func TestValidLocale(t *testing.T) {
	tests := []struct {
		locale string
		want   bool
	}{
		{"en", true},
		{"en-US", true},
		{"deu-DE", true},
		{"e", false},
		{"english", false},
		{"en-USA", false},
	}

	for _, tt := range tests {
		if got := validLocale(tt.locale); got != tt.want {
			t.Fatalf("validLocale(%q) = %v, want %v", tt.locale, got, tt.want)
		}
	}
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
