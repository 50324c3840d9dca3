// Package narration sequences spoken messages through an injected speech
// engine, enforcing the single-flight rule: at most one utterance is audible
// system-wide, and starting a new one cancels the previous one.
package narration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"training-kiosk/internal/clock"
)

// Outcome is the terminal result of one utterance. Exactly one outcome is
// delivered per Speak call that reaches the engine.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// State is the controller lifecycle: Idle -> Speaking -> Idle.
type State string

const (
	StateIdle     State = "idle"
	StateSpeaking State = "speaking"
)

// Voice describes one engine voice.
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
}

// Utterance is one speech request handed to the engine. OnEnd and OnError
// are invoked by the engine at most once each.
type Utterance struct {
	ID      string
	Text    string
	Rate    float64
	Pitch   float64
	Volume  float64
	VoiceID string
	OnEnd   func()
	OnError func(err error)
}

// Engine is the injected speech capability. Cancel stops the current
// utterance synchronously from the caller's perspective; callbacks for a
// cancelled utterance may still arrive and are filtered by the controller.
type Engine interface {
	Voices() []Voice
	Speak(u Utterance) error
	Cancel()
}

// Options tune one utterance. Zero values take the standard defaults.
type Options struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

const (
	defaultRate   = 0.9
	defaultPitch  = 1.0
	defaultVolume = 1.0

	voicePollInterval = 100 * time.Millisecond
	voicePollBudget   = 50
)

// Controller owns the speech engine and the voice-selection policy.
type Controller struct {
	engine     Engine
	clock      clock.Clock
	log        *zap.Logger
	locale     string
	genderHint string

	mu        sync.Mutex
	currentID string
}

// NewController creates a controller targeting the given locale and
// gender-hint for voice selection.
func NewController(engine Engine, clk clock.Clock, locale, genderHint string, log *zap.Logger) *Controller {
	return &Controller{
		engine:     engine,
		clock:      clk,
		log:        log,
		locale:     locale,
		genderHint: genderHint,
	}
}

// State reports whether an utterance is in flight.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentID != "" {
		return StateSpeaking
	}
	return StateIdle
}

// Speak cancels any in-flight utterance and speaks text asynchronously.
// done receives exactly one terminal outcome, unless the utterance is
// cancelled (Cancel or a newer Speak), in which case done is never invoked.
// When the voice list is empty the controller waits for it to populate
// before speaking, up to a bounded budget; exhausting the budget counts as
// a failure rather than speaking with an unspecified voice.
func (c *Controller) Speak(ctx context.Context, text string, opts Options, done func(Outcome)) {
	id := uuid.NewString()

	c.mu.Lock()
	if c.currentID != "" {
		c.engine.Cancel()
	}
	c.currentID = id
	c.mu.Unlock()

	go c.speak(ctx, id, text, opts, done)
}

// Cancel stops the in-flight utterance, if any. Its continuation becomes a
// no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	active := c.currentID != ""
	c.currentID = ""
	c.mu.Unlock()

	if active {
		c.engine.Cancel()
	}
}

func (c *Controller) speak(ctx context.Context, id, text string, opts Options, done func(Outcome)) {
	voices, wait := c.awaitVoices(ctx, id)
	switch wait {
	case voiceWaitCancelled:
		return
	case voiceWaitExhausted:
		if c.release(id) {
			c.log.Warn("no voices available, narration skipped")
			done(OutcomeFailed)
		}
		return
	}

	utterance := Utterance{
		ID:     id,
		Text:   text,
		Rate:   valueOr(opts.Rate, defaultRate),
		Pitch:  valueOr(opts.Pitch, defaultPitch),
		Volume: valueOr(opts.Volume, defaultVolume),
		OnEnd: func() {
			if c.release(id) {
				done(OutcomeCompleted)
			}
		},
		OnError: func(err error) {
			if c.release(id) {
				c.log.Warn("speech engine error", zap.Error(err))
				done(OutcomeFailed)
			}
		},
	}

	if voice, found := SelectVoice(voices, c.locale, c.genderHint); found {
		utterance.VoiceID = voice.ID
		c.log.Debug("voice selected", zap.String("voice", voice.Name))
	}

	if err := c.engine.Speak(utterance); err != nil {
		if c.release(id) {
			c.log.Warn("speech engine rejected utterance", zap.Error(err))
			done(OutcomeFailed)
		}
	}
}

type voiceWaitResult int

const (
	voiceWaitReady voiceWaitResult = iota
	voiceWaitCancelled
	voiceWaitExhausted
)

// awaitVoices polls the engine voice list until non-empty or the budget is
// spent. Cancellation (a newer utterance, Cancel, or context expiry) means
// no continuation must fire.
func (c *Controller) awaitVoices(ctx context.Context, id string) ([]Voice, voiceWaitResult) {
	for attempt := 0; ; attempt++ {
		if !c.isCurrent(id) {
			return nil, voiceWaitCancelled
		}
		if voices := c.engine.Voices(); len(voices) > 0 {
			return voices, voiceWaitReady
		}
		if attempt >= voicePollBudget {
			return nil, voiceWaitExhausted
		}

		select {
		case <-ctx.Done():
			return nil, voiceWaitCancelled
		case <-c.clock.After(voicePollInterval):
		}
	}
}

func (c *Controller) isCurrent(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID == id
}

// release clears the active utterance if id is still current. It returns
// whether the caller owns the terminal continuation.
func (c *Controller) release(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentID != id {
		return false
	}
	c.currentID = ""
	return true
}

func valueOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
