package narration

import "strings"

// VoiceOption describes one known-good voice preset offered in settings.
type VoiceOption struct {
	Name        string `json:"name"`
	Locale      string `json:"locale"`
	Platform    string `json:"platform"`
	Description string `json:"description,omitempty"`
}

// knownVoiceCatalog lists voices observed to render the trainer persona
// consistently across platforms. Order matters: earlier entries win.
var knownVoiceCatalog = []VoiceOption{
	{
		Name:        "Google US English",
		Locale:      "en-US",
		Platform:    "Chrome, Android",
		Description: "Most consistent rendering across Chromium engines.",
	},
	{
		Name:        "Samantha",
		Locale:      "en-US",
		Platform:    "macOS, iOS",
		Description: "Native Apple voice.",
	},
	{
		Name:        "Zira",
		Locale:      "en-US",
		Platform:    "Windows",
		Description: "Native Microsoft voice.",
	},
	{
		Name:        "Google US English Female",
		Locale:      "en-US",
		Platform:    "Chrome",
		Description: "Legacy Chromium voice name.",
	},
}

// VoiceCatalog returns the known-good voice presets.
func VoiceCatalog() []VoiceOption {
	out := make([]VoiceOption, len(knownVoiceCatalog))
	copy(out, knownVoiceCatalog)
	return out
}

// SelectVoice applies the voice preference policy, in priority order:
// an engine vendor voice in the target locale, a known-good named voice,
// any locale voice whose name contains the gender hint, and finally none
// (the engine default). The gender-hint match is case-insensitive.
func SelectVoice(voices []Voice, locale, genderHint string) (Voice, bool) {
	for _, v := range voices {
		if v.Locale == locale && strings.HasPrefix(v.Name, "Google") {
			return v, true
		}
	}

	for _, option := range knownVoiceCatalog {
		for _, v := range voices {
			if strings.Contains(v.Name, option.Name) {
				return v, true
			}
		}
	}

	if genderHint != "" {
		hint := strings.ToLower(genderHint)
		for _, v := range voices {
			if v.Locale == locale && strings.Contains(strings.ToLower(v.Name), hint) {
				return v, true
			}
		}
	}

	return Voice{}, false
}
