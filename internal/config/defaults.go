package config

import "training-kiosk/internal/domain"

// DefaultSettings returns baseline configuration for first launch. The API
// base URL may be overridden by the environment during bootstrap.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		APIBaseURL:             "http://localhost:8000/api",
		VideoSource:            "/training-video.mp4",
		VideoTitle:             "Business Case Development Training Video",
		NarrationEnabled:       true,
		MediaGenerationEnabled: true,
		VoiceLocale:            "en-US",
		VoiceGenderHint:        "female",
	}
}
