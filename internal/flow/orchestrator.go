package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"training-kiosk/internal/clock"
	"training-kiosk/internal/domain"
	"training-kiosk/internal/narration"
)

// SessionAPI is the backend surface the orchestrator needs.
type SessionAPI interface {
	GetSession(ctx context.Context, sessionID int) (domain.Session, error)
	UpdateStatus(ctx context.Context, sessionID int, stage domain.Stage) (domain.Session, error)
	PatchSession(ctx context.Context, sessionID int, patch domain.SessionPatch) (domain.Session, error)
}

// Generator produces the greeting media for a session.
type Generator interface {
	Generate(ctx context.Context, sessionID int) (domain.GenerationResult, error)
}

// Narrator sequences spoken messages.
type Narrator interface {
	Speak(ctx context.Context, text string, opts narration.Options, done func(narration.Outcome))
	Cancel()
}

// Assessment is the quiz engine surface driven at the assessment stage.
type Assessment interface {
	Begin(ctx context.Context, sessionID int) error
	Reset()
}

// Config selects which optional behaviors one deployment runs. It replaces
// the old practice of shipping parallel component variants.
type Config struct {
	NarrationEnabled       bool
	MediaGenerationEnabled bool
	GestureRequired        bool
	VideoSource            string
	VideoTitle             string
}

const (
	greetingTemplate = "Hello %s, welcome to the training! I'm Laura, your training expert. " +
		"Today, you'll watch a comprehensive training video on Business Case Development, " +
		"then complete a personalized assessment. Let's get started!"

	postVideoText = "I hope you have understood the video. Now we will be navigating to " +
		"MCQ questions to test your understanding based on it. At the end we will " +
		"provide feedback. All the best!"

	completionGrace  = 1 * time.Second
	failureGrace     = 2 * time.Second
	gestureFailGrace = 15 * time.Second
)

// Orchestrator drives one training session through its stages. Exactly one
// session is active at a time; entering a stage cancels the previous
// stage's in-flight work.
type Orchestrator struct {
	api      SessionAPI
	media    Generator
	narrator Narrator
	quiz     Assessment
	tracker  *Tracker
	bus      *Bus
	clock    clock.Clock
	log      *zap.Logger
	cfg      Config

	completionGrace  time.Duration
	failureGrace     time.Duration
	gestureFailGrace time.Duration

	mu            sync.Mutex
	session       domain.Session
	epoch         uint64
	stageCtx      context.Context
	stageCancel   context.CancelFunc
	pendingSpeech func()
}

// NewOrchestrator wires the flow engine. The narrator and media generator
// may be no-ops when disabled by config, but must be non-nil.
func NewOrchestrator(api SessionAPI, media Generator, narrator Narrator, quiz Assessment, bus *Bus, clk clock.Clock, cfg Config, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		api:              api,
		media:            media,
		narrator:         narrator,
		quiz:             quiz,
		tracker:          NewTracker(),
		bus:              bus,
		clock:            clk,
		log:              log,
		cfg:              cfg,
		completionGrace:  completionGrace,
		failureGrace:     failureGrace,
		gestureFailGrace: gestureFailGrace,
	}
}

// Snapshot is the current flow state for UI reads.
type Snapshot struct {
	Session domain.Session `json:"session"`
	Stage   domain.Stage   `json:"stage"`
}

// State returns the current session and stage.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()
	_, stage := o.tracker.Current()
	return Snapshot{Session: session, Stage: stage}
}

// Start loads the session and enters the greeting stage. A load failure is
// terminal for the run: the error event carries a manual path forward.
func (o *Orchestrator) Start(ctx context.Context, sessionID int) error {
	session, err := o.api.GetSession(ctx, sessionID)
	if err != nil {
		o.bus.Publish(Event{
			SessionID: sessionID,
			Type:      EventTypeError,
			Message:   "Failed to load session",
		})
		return fmt.Errorf("load session %d: %w", sessionID, err)
	}

	o.quiz.Reset()
	o.tracker.Begin(session.ID)

	o.mu.Lock()
	o.session = session
	o.mu.Unlock()

	o.log.Info("session started",
		zap.Int("session_id", session.ID),
		zap.String("trainee", session.TraineeName))
	return o.enterStage(domain.StageGreeting)
}

// Skip short-circuits the current stage: the target stage still gets its
// status update before any stage work, so backend and UI stay in agreement.
func (o *Orchestrator) Skip() error {
	_, stage := o.tracker.Current()
	next, ok := domain.NextStage(stage)
	if !ok {
		return fmt.Errorf("%w: nothing after %s", ErrStaleTransition, stage)
	}
	o.log.Info("stage skipped", zap.String("from", string(stage)), zap.String("to", string(next)))
	return o.enterStage(next)
}

// Gesture runs narration deferred behind the platform's autoplay gate.
// It performs exactly the call that would otherwise have run automatically.
func (o *Orchestrator) Gesture() {
	o.mu.Lock()
	speak := o.pendingSpeech
	o.pendingSpeech = nil
	o.mu.Unlock()

	if speak != nil {
		speak()
	}
}

// VideoEnded records video completion and advances to the post-video stage.
func (o *Orchestrator) VideoEnded() error {
	o.mu.Lock()
	epoch := o.epoch
	ctx := o.stageCtx
	sessionID := o.session.ID
	o.mu.Unlock()

	if _, stage := o.tracker.Current(); stage != domain.StageVideo {
		return fmt.Errorf("%w: video ended during %s", ErrStaleTransition, stage)
	}

	completed := true
	if session, err := o.api.PatchSession(ctx, sessionID, domain.SessionPatch{VideoCompleted: &completed}); err != nil {
		o.log.Warn("video completion patch failed", zap.Error(err))
	} else {
		o.setSession(session)
	}

	o.advanceFrom(domain.StageVideo, epoch)
	return nil
}

// AssessmentCompleted receives the server-computed exam result from the
// quiz engine and records the score on the session.
func (o *Orchestrator) AssessmentCompleted(result domain.ExamResult) {
	o.mu.Lock()
	ctx := o.stageCtx
	sessionID := o.session.ID
	o.mu.Unlock()

	if _, stage := o.tracker.Current(); stage != domain.StageAssessment {
		o.log.Warn("exam result after assessment stage", zap.String("stage", string(stage)))
		return
	}

	score, total := result.Score, result.Total
	patch := domain.SessionPatch{MCQScore: &score, MCQTotal: &total}
	if session, err := o.api.PatchSession(ctx, sessionID, patch); err != nil {
		o.log.Warn("score patch failed", zap.Error(err))
	} else {
		o.setSession(session)
	}

	o.bus.Publish(Event{
		SessionID: sessionID,
		Type:      EventTypeResult,
		Stage:     domain.StageAssessment,
		Result:    &result,
	})
}

// AssessmentClosed completes the run after the feedback narration settled:
// the session reaches the completed stage and the UI returns to start.
func (o *Orchestrator) AssessmentClosed() {
	o.mu.Lock()
	epoch := o.epoch
	o.mu.Unlock()
	o.advanceFrom(domain.StageAssessment, epoch)
}

// enterStage cancels the previous stage's work and launches the target
// stage. The tracker rejects anything but the forward successor.
func (o *Orchestrator) enterStage(target domain.Stage) error {
	if err := o.tracker.Advance(target); err != nil {
		return err
	}

	o.mu.Lock()
	o.epoch++
	epoch := o.epoch
	if o.stageCancel != nil {
		o.stageCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.stageCtx = ctx
	o.stageCancel = cancel
	o.pendingSpeech = nil
	sessionID := o.session.ID
	o.mu.Unlock()

	o.narrator.Cancel()
	o.bus.Publish(Event{
		SessionID: sessionID,
		Type:      EventTypeStage,
		Stage:     target,
		Message:   "Entered " + string(target) + " stage",
	})

	go o.runStage(ctx, epoch, sessionID, target)
	return nil
}

// advanceFrom moves to the successor of the given stage unless the flow
// already moved on (stale-signal guard).
func (o *Orchestrator) advanceFrom(stage domain.Stage, epoch uint64) {
	o.mu.Lock()
	stale := o.epoch != epoch
	o.mu.Unlock()
	if stale {
		return
	}

	next, ok := domain.NextStage(stage)
	if !ok {
		return
	}
	if err := o.enterStage(next); err != nil {
		o.log.Debug("advance ignored", zap.Error(err))
	}
}

// runStage posts the stage status update and performs the stage's work.
// A failed status update is logged but never blocks the stage.
func (o *Orchestrator) runStage(ctx context.Context, epoch uint64, sessionID int, stage domain.Stage) {
	if session, err := o.api.UpdateStatus(ctx, sessionID, stage); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Warn("status update failed",
			zap.Int("session_id", sessionID),
			zap.String("stage", string(stage)),
			zap.Error(err))
	} else {
		o.setSession(session)
	}

	switch stage {
	case domain.StageGreeting:
		o.runGreeting(ctx, epoch, sessionID)
	case domain.StageVideo:
		o.runVideo(sessionID)
	case domain.StagePostVideo:
		o.runPostVideo(ctx, epoch, sessionID)
	case domain.StageAssessment:
		o.runAssessment(ctx, sessionID)
	case domain.StageCompleted:
		o.runCompleted(ctx, sessionID)
	}
}

func (o *Orchestrator) runGreeting(ctx context.Context, epoch uint64, sessionID int) {
	if o.cfg.MediaGenerationEnabled {
		result, err := o.media.Generate(ctx, sessionID)
		if err != nil {
			return // cancelled
		}

		if result.Status == domain.GenerationCompleted {
			o.bus.Publish(Event{
				SessionID: sessionID,
				Type:      EventTypeMedia,
				Stage:     domain.StageGreeting,
				VideoURL:  result.VideoURL,
				Message:   "Greeting video ready",
			})
		} else {
			// No media is a degraded greeting, not a dead end.
			o.log.Info("greeting media unavailable", zap.String("status", string(result.Status)))
			o.bus.Publish(Event{
				SessionID: sessionID,
				Type:      EventTypeMedia,
				Stage:     domain.StageGreeting,
				Message:   "Greeting video unavailable",
			})
		}
	}

	o.narrateThenAdvance(ctx, epoch, sessionID, domain.StageGreeting,
		fmt.Sprintf(greetingTemplate, o.State().Session.TraineeName))
}

func (o *Orchestrator) runVideo(sessionID int) {
	o.bus.Publish(Event{
		SessionID:  sessionID,
		Type:       EventTypeMedia,
		Stage:      domain.StageVideo,
		VideoURL:   o.cfg.VideoSource,
		VideoTitle: o.cfg.VideoTitle,
		Message:    "Training video ready",
	})
	// The stage completes through VideoEnded or Skip.
}

func (o *Orchestrator) runPostVideo(ctx context.Context, epoch uint64, sessionID int) {
	o.narrateThenAdvance(ctx, epoch, sessionID, domain.StagePostVideo, postVideoText)
}

func (o *Orchestrator) runAssessment(ctx context.Context, sessionID int) {
	if err := o.quiz.Begin(ctx, sessionID); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Error("assessment load failed", zap.Error(err))
		o.bus.Publish(Event{
			SessionID: sessionID,
			Type:      EventTypeError,
			Stage:     domain.StageAssessment,
			Message:   "Failed to load questions. Please try again or contact support.",
		})
	}
}

func (o *Orchestrator) runCompleted(ctx context.Context, sessionID int) {
	select {
	case <-ctx.Done():
		return
	case <-o.clock.After(o.failureGrace):
	}
	o.tracker.Reset()
	o.bus.Publish(Event{
		SessionID: sessionID,
		Type:      EventTypeReset,
		Stage:     domain.StageCompleted,
		Message:   "Training complete",
	})
}

// narrateThenAdvance speaks the stage message and advances on its terminal
// outcome after a grace delay. With narration disabled or gated behind a
// user gesture, the stage either advances on a manual action or waits for
// the first tap.
func (o *Orchestrator) narrateThenAdvance(ctx context.Context, epoch uint64, sessionID int, stage domain.Stage, text string) {
	if !o.cfg.NarrationEnabled {
		o.bus.Publish(Event{
			SessionID: sessionID,
			Type:      EventTypePrompt,
			Stage:     stage,
			Message:   "Continue when ready",
		})
		return
	}

	speak := func() {
		o.bus.Publish(Event{
			SessionID: sessionID,
			Type:      EventTypeNarration,
			Stage:     stage,
			Message:   "Narration started",
		})
		o.narrator.Speak(ctx, text, narration.Options{}, func(outcome narration.Outcome) {
			o.afterNarration(ctx, epoch, stage, outcome)
		})
	}

	if o.cfg.GestureRequired {
		o.mu.Lock()
		current := o.epoch == epoch
		if current {
			o.pendingSpeech = speak
		}
		o.mu.Unlock()
		if current {
			o.bus.Publish(Event{
				SessionID: sessionID,
				Type:      EventTypePrompt,
				Stage:     stage,
				Message:   "Tap anywhere to hear Laura",
			})
		}
		return
	}

	speak()
}

// afterNarration applies the grace delay for the narration outcome, then
// advances. Failure is non-fatal: the flow proceeds instead of retrying.
func (o *Orchestrator) afterNarration(ctx context.Context, epoch uint64, stage domain.Stage, outcome narration.Outcome) {
	grace := o.completionGrace
	if outcome == narration.OutcomeFailed {
		grace = o.failureGrace
		if o.cfg.GestureRequired {
			// Gated platforms show the message text instead; leave time
			// to read it before moving on.
			grace = o.gestureFailGrace
		}
		o.log.Warn("narration failed, advancing anyway", zap.String("stage", string(stage)))
	}

	select {
	case <-ctx.Done():
		return
	case <-o.clock.After(grace):
	}
	o.advanceFrom(stage, epoch)
}

func (o *Orchestrator) setSession(session domain.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if session.ID == o.session.ID {
		o.session = session
	}
}
