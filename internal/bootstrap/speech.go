package bootstrap

import (
	"context"
	"errors"
	"sync"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"training-kiosk/internal/narration"
)

// Event names of the speech contract with the frontend. The backend asks
// the webview to speak; the webview reports the terminal outcome back
// through the bound NarrationEnded and NarrationFailed methods.
const (
	eventSpeak  = "narration:speak"
	eventCancel = "narration:cancel"
)

// speakPayload is the utterance as the webview receives it.
type speakPayload struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Rate    float64 `json:"rate"`
	Pitch   float64 `json:"pitch"`
	Volume  float64 `json:"volume"`
	VoiceID string  `json:"voiceId,omitempty"`
}

// speechBridge implements the narration engine on top of the webview's
// SpeechSynthesis API. The voice list is pushed by the frontend once the
// browser populates it, which may be after the first Speak call.
type speechBridge struct {
	mu      sync.Mutex
	ctx     context.Context
	voices  []narration.Voice
	current narration.Utterance
	active  bool
}

func (b *speechBridge) setContext(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
}

func (b *speechBridge) setVoices(voices []narration.Voice) {
	b.mu.Lock()
	b.voices = append([]narration.Voice(nil), voices...)
	b.mu.Unlock()
}

func (b *speechBridge) Voices() []narration.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]narration.Voice(nil), b.voices...)
}

func (b *speechBridge) Speak(u narration.Utterance) error {
	b.mu.Lock()
	ctx := b.ctx
	b.current = u
	b.active = ctx != nil
	b.mu.Unlock()

	if ctx == nil {
		return errors.New("ui runtime is not initialized")
	}

	wailsruntime.EventsEmit(ctx, eventSpeak, speakPayload{
		ID:      u.ID,
		Text:    u.Text,
		Rate:    u.Rate,
		Pitch:   u.Pitch,
		Volume:  u.Volume,
		VoiceID: u.VoiceID,
	})
	return nil
}

func (b *speechBridge) Cancel() {
	b.mu.Lock()
	ctx := b.ctx
	b.active = false
	b.mu.Unlock()

	if ctx != nil {
		wailsruntime.EventsEmit(ctx, eventCancel)
	}
}

// finish routes one terminal report from the webview to the utterance
// callbacks. Reports for superseded utterance IDs are dropped.
func (b *speechBridge) finish(id string, failure error) {
	b.mu.Lock()
	if !b.active || b.current.ID != id {
		b.mu.Unlock()
		return
	}
	u := b.current
	b.active = false
	b.mu.Unlock()

	if failure != nil {
		if u.OnError != nil {
			u.OnError(failure)
		}
		return
	}
	if u.OnEnd != nil {
		u.OnEnd()
	}
}
