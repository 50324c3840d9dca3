// Package diagnostics runs startup health checks for the kiosk: backend
// reachability, configuration sanity, and settings persistence.
package diagnostics

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"training-kiosk/internal/domain"
)

// Checker validates configuration and the environment the kiosk runs in.
type Checker struct {
	settingsDir string

	probe      func(baseURL string) error
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS and network dependencies.
func NewChecker(settingsDir string) *Checker {
	return &Checker{
		settingsDir: settingsDir,
		probe:       probeBackend,
		mkdirAll:    os.MkdirAll,
		createTemp:  os.CreateTemp,
		remove:      os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkBaseURL(settings.APIBaseURL),
		c.checkBackend(settings.APIBaseURL),
		c.checkSettingsDir(),
		c.checkVoice(settings),
		c.checkVideoSource(settings.VideoSource),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkBaseURL validates the configured backend address.
func (c *Checker) checkBaseURL(baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "api_base_url",
		Name: "Backend URL",
	}

	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Backend URL is empty."
		item.Hint = "Set the training backend address in settings, e.g. http://localhost:8000/api."
		return item
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend URL is not valid: %s", trimmed)
		item.Hint = "Use a full http or https URL including the host."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using backend at %s", trimmed)
	return item
}

// checkBackend probes the backend for reachability. Any HTTP response
// counts; only transport failures fail the check.
func (c *Checker) checkBackend(baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend_reachable",
		Name: "Backend connectivity",
	}

	if err := c.probe(strings.TrimSpace(baseURL)); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend is not reachable: %v", err)
		item.Hint = "Start the training backend and check the network before registering trainees."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "Backend responded."
	return item
}

// checkSettingsDir validates the settings directory exists and is writable.
func (c *Checker) checkSettingsDir() domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "settings_dir",
		Name: "Settings directory",
	}

	if err := c.mkdirAll(c.settingsDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create settings directory: %s", c.settingsDir)
		item.Hint = "Adjust filesystem permissions; settings changes will not persist."
		return item
	}

	tmpFile, err := c.createTemp(c.settingsDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Settings directory is not writable: %s", c.settingsDir)
		item.Hint = "Adjust filesystem permissions; settings changes will not persist."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", c.settingsDir)
	return item
}

// checkVoice validates the narration voice configuration.
func (c *Checker) checkVoice(settings domain.Settings) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "voice_config",
		Name: "Narration voice",
	}

	if !settings.NarrationEnabled {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Narration is disabled; stages advance manually."
		return item
	}

	locale := strings.TrimSpace(settings.VoiceLocale)
	if locale == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Voice locale is empty."
		item.Hint = "Set a BCP 47 locale such as en-US."
		return item
	}
	if !validLocale(locale) {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Voice locale is not valid: %s", locale)
		item.Hint = "Use a language tag like en-US or de-DE."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Narrating in %s.", locale)
	return item
}

// checkVideoSource validates the training video is configured.
func (c *Checker) checkVideoSource(source string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "video_source",
		Name: "Training video",
	}

	if strings.TrimSpace(source) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Training video source is empty."
		item.Hint = "Set the video path or URL in settings."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Video source: %s", source)
	return item
}

// validLocale accepts "en" or "en-US" shaped tags.
func validLocale(locale string) bool {
	lang, region, hasRegion := strings.Cut(locale, "-")
	if len(lang) < 2 || len(lang) > 3 {
		return false
	}
	if hasRegion && len(region) != 2 {
		return false
	}
	return true
}

// probeBackend issues one short request; any HTTP status means reachable.
func probeBackend(baseURL string) error {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(baseURL)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	settingsDir string,
	probe func(string) error,
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		settingsDir: settingsDir,
		probe:       probe,
		mkdirAll:    mkdirAll,
		createTemp:  createTemp,
		remove:      remove,
	}
}
