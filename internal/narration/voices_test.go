package narration

import "testing"

// TestSelectVoicePolicyOrder exercises the four preference tiers.
func TestSelectVoicePolicyOrder(t *testing.T) {
	google := Voice{ID: "g", Name: "Google US English", Locale: "en-US"}
	samantha := Voice{ID: "s", Name: "Samantha", Locale: "en-US"}
	femaleUK := Voice{ID: "f", Name: "UK Female Voice", Locale: "en-GB"}
	femaleUS := Voice{ID: "u", Name: "Microsoft FEMALE Desktop", Locale: "en-US"}
	german := Voice{ID: "d", Name: "Anna", Locale: "de-DE"}

	tests := []struct {
		name   string
		voices []Voice
		wantID string
		wantOK bool
	}{
		{
			name:   "vendor voice in locale wins",
			voices: []Voice{samantha, google},
			wantID: "g",
			wantOK: true,
		},
		{
			name:   "known-good named voice next",
			voices: []Voice{german, samantha},
			wantID: "s",
			wantOK: true,
		},
		{
			name:   "gender hint match is case-insensitive and locale-bound",
			voices: []Voice{femaleUK, femaleUS},
			wantID: "u",
			wantOK: true,
		},
		{
			name:   "no match falls back to engine default",
			voices: []Voice{german},
			wantOK: false,
		},
		{
			name:   "empty list",
			voices: nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voice, ok := SelectVoice(tt.voices, "en-US", "female")
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && voice.ID != tt.wantID {
				t.Fatalf("voice = %s, want %s", voice.ID, tt.wantID)
			}
		})
	}
}

// TestVoiceCatalogIsCopied guards the catalog against caller mutation.
func TestVoiceCatalogIsCopied(t *testing.T) {
	catalog := VoiceCatalog()
	if len(catalog) == 0 {
		t.Fatal("catalog is empty")
	}
	catalog[0].Name = "mutated"
	if VoiceCatalog()[0].Name == "mutated" {
		t.Fatal("catalog exposed internal slice")
	}
}
