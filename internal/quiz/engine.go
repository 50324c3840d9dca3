// Package quiz runs the multiple-choice assessment: question delivery,
// server-side answer verdicts, the timed feedback window, and the final
// exam result with spoken feedback.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"training-kiosk/internal/clock"
	"training-kiosk/internal/domain"
	"training-kiosk/internal/flow"
	"training-kiosk/internal/narration"
)

// API is the backend surface the quiz needs.
type API interface {
	Questions(ctx context.Context, sessionID int) ([]domain.Question, error)
	AutoGenerateQuestions(ctx context.Context, sessionID, count int) ([]domain.Question, error)
	SubmitAnswer(ctx context.Context, sessionID, questionID int, selected string) (domain.AnswerFeedback, error)
	SubmitExam(ctx context.Context, sessionID int) (domain.ExamResult, error)
}

// Narrator speaks the final feedback text.
type Narrator interface {
	Speak(ctx context.Context, text string, opts narration.Options, done func(narration.Outcome))
}

// Hooks let the flow engine observe assessment milestones without the quiz
// package depending on the orchestrator.
type Hooks struct {
	// OnResult fires once with the server-computed exam result.
	OnResult func(domain.ExamResult)
	// OnFinished fires after the feedback narration and closing delay.
	OnFinished func()
}

var (
	ErrNotActive       = errors.New("assessment not active")
	ErrAnswerLocked    = errors.New("answer already submitted")
	ErrNoSelection     = errors.New("no option selected")
	ErrUnknownQuestion = errors.New("not the current question")
	ErrBadOption       = errors.New("option must be A, B, C or D")
)

const (
	defaultQuestionCount = 5
	feedbackWindow       = 5 * time.Second
	resetDelay           = 2 * time.Second
)

// Engine drives one assessment at a time. Correctness and scoring are
// entirely server-side; the engine only relays verdicts and paces the flow.
type Engine struct {
	api      API
	narrator Narrator
	bus      *flow.Bus
	clock    clock.Clock
	log      *zap.Logger
	hooks    Hooks

	narrationEnabled bool
	questionCount    int
	feedbackWindow   time.Duration
	resetDelay       time.Duration

	mu        sync.Mutex
	ctx       context.Context
	epoch     uint64
	sessionID int
	questions []domain.Question
	answers   map[int]string
	index     int
	locked    bool
}

// NewEngine wires an assessment engine.
func NewEngine(api API, narrator Narrator, bus *flow.Bus, clk clock.Clock, narrationEnabled bool, hooks Hooks, log *zap.Logger) *Engine {
	return &Engine{
		api:              api,
		narrator:         narrator,
		bus:              bus,
		clock:            clk,
		log:              log,
		hooks:            hooks,
		narrationEnabled: narrationEnabled,
		questionCount:    defaultQuestionCount,
		feedbackWindow:   feedbackWindow,
		resetDelay:       resetDelay,
	}
}

// Begin loads the question set, generating one when the session has none,
// and publishes the first question.
func (e *Engine) Begin(ctx context.Context, sessionID int) error {
	questions, err := e.api.Questions(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		e.log.Info("no stored questions, generating",
			zap.Int("session_id", sessionID),
			zap.Int("count", e.questionCount))
		questions, err = e.api.AutoGenerateQuestions(ctx, sessionID, e.questionCount)
		if err != nil {
			return fmt.Errorf("generate questions: %w", err)
		}
	}
	if len(questions) == 0 {
		return errors.New("backend returned an empty question set")
	}

	e.mu.Lock()
	e.epoch++
	e.ctx = ctx
	e.sessionID = sessionID
	e.questions = questions
	e.answers = make(map[int]string, len(questions))
	e.index = 0
	e.locked = false
	e.mu.Unlock()

	e.publishQuestion(sessionID, questions[0], 0, len(questions))
	return nil
}

// Reset discards any in-progress assessment.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.ctx = nil
	e.sessionID = 0
	e.questions = nil
	e.answers = nil
	e.index = 0
	e.locked = false
}

// Select records an option for the current question. Re-selecting before
// submission overwrites; after submission the answer is locked.
func (e *Engine) Select(questionID int, option string) error {
	option = strings.ToUpper(strings.TrimSpace(option))
	switch option {
	case "A", "B", "C", "D":
	default:
		return fmt.Errorf("%w: %q", ErrBadOption, option)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil || e.index >= len(e.questions) {
		return ErrNotActive
	}
	if e.locked {
		return ErrAnswerLocked
	}
	if current := e.questions[e.index]; current.ID != questionID {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}

	e.answers[questionID] = option
	return nil
}

// SubmitCurrent sends the selected answer for the current question. On
// success the server verdict is shown for the feedback window before the
// quiz moves on; a failed submission advances without feedback so one bad
// request cannot strand the run.
func (e *Engine) SubmitCurrent() error {
	e.mu.Lock()
	if e.ctx == nil || e.index >= len(e.questions) {
		e.mu.Unlock()
		return ErrNotActive
	}
	if e.locked {
		e.mu.Unlock()
		return ErrAnswerLocked
	}
	question := e.questions[e.index]
	selected, ok := e.answers[question.ID]
	if !ok {
		e.mu.Unlock()
		return ErrNoSelection
	}
	e.locked = true
	ctx := e.ctx
	epoch := e.epoch
	sessionID := e.sessionID
	index := e.index
	total := len(e.questions)
	e.mu.Unlock()

	feedback, err := e.api.SubmitAnswer(ctx, sessionID, question.ID, selected)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log.Warn("answer submission failed",
			zap.Int("question_id", question.ID),
			zap.Error(err))
		e.advance(epoch)
		return nil
	}

	e.bus.Publish(flow.Event{
		SessionID:     sessionID,
		Type:          flow.EventTypeFeedback,
		Stage:         domain.StageAssessment,
		Feedback:      &feedback,
		QuestionIndex: index + 1,
		QuestionTotal: total,
	})

	go e.holdFeedback(ctx, epoch)
	return nil
}

// holdFeedback keeps the verdict on screen for the feedback window.
func (e *Engine) holdFeedback(ctx context.Context, epoch uint64) {
	select {
	case <-ctx.Done():
		return
	case <-e.clock.After(e.feedbackWindow):
	}
	e.advance(epoch)
}

// advance moves to the next question, or finalizes the exam after the last.
func (e *Engine) advance(epoch uint64) {
	e.mu.Lock()
	if e.ctx == nil || e.epoch != epoch {
		e.mu.Unlock()
		return
	}
	e.locked = false
	e.index++
	sessionID := e.sessionID
	ctx := e.ctx
	if e.index < len(e.questions) {
		question := e.questions[e.index]
		index := e.index
		total := len(e.questions)
		e.mu.Unlock()
		e.publishQuestion(sessionID, question, index, total)
		return
	}
	e.mu.Unlock()

	e.finish(ctx, epoch, sessionID)
}

// finish submits the exam, reports the result, and narrates the feedback.
func (e *Engine) finish(ctx context.Context, epoch uint64, sessionID int) {
	result, err := e.api.SubmitExam(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.log.Error("exam submission failed", zap.Error(err))
		e.bus.Publish(flow.Event{
			SessionID: sessionID,
			Type:      flow.EventTypeError,
			Stage:     domain.StageAssessment,
			Message:   "Failed to submit exam. Please contact support.",
		})
		return
	}

	e.mu.Lock()
	answered := len(e.questions)
	e.mu.Unlock()
	if len(result.QuestionsReview) != answered {
		e.log.Warn("review length does not match question count",
			zap.Int("review", len(result.QuestionsReview)),
			zap.Int("questions", answered))
	}

	if e.hooks.OnResult != nil {
		e.hooks.OnResult(result)
	}

	if !e.narrationEnabled || result.Feedback == "" {
		e.closeAfterDelay(ctx, epoch)
		return
	}
	e.narrator.Speak(ctx, result.Feedback, narration.Options{}, func(narration.Outcome) {
		e.closeAfterDelay(ctx, epoch)
	})
}

// closeAfterDelay leaves the result visible briefly, then signals the flow
// to wrap up the session.
func (e *Engine) closeAfterDelay(ctx context.Context, epoch uint64) {
	select {
	case <-ctx.Done():
		return
	case <-e.clock.After(e.resetDelay):
	}

	e.mu.Lock()
	stale := e.epoch != epoch
	e.mu.Unlock()
	if stale {
		return
	}

	if e.hooks.OnFinished != nil {
		e.hooks.OnFinished()
	}
}

func (e *Engine) publishQuestion(sessionID int, question domain.Question, index, total int) {
	e.bus.Publish(flow.Event{
		SessionID:     sessionID,
		Type:          flow.EventTypeQuestion,
		Stage:         domain.StageAssessment,
		Question:      &question,
		QuestionIndex: index + 1,
		QuestionTotal: total,
	})
}
