package flow

import (
	"sync"
	"time"

	"training-kiosk/internal/domain"
)

// EventType classifies messages emitted during a training run.
type EventType string

const (
	EventTypeStage     EventType = "stage"
	EventTypeMedia     EventType = "media"
	EventTypeNarration EventType = "narration"
	EventTypePrompt    EventType = "prompt"
	EventTypeQuestion  EventType = "question"
	EventTypeFeedback  EventType = "feedback"
	EventTypeResult    EventType = "result"
	EventTypeError     EventType = "error"
	EventTypeReset     EventType = "reset"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq           int64                  `json:"seq"`
	Timestamp     time.Time              `json:"timestamp"`
	SessionID     int                    `json:"sessionId"`
	Type          EventType              `json:"type"`
	Stage         domain.Stage           `json:"stage,omitempty"`
	Message       string                 `json:"message,omitempty"`
	VideoURL      string                 `json:"videoUrl,omitempty"`
	VideoTitle    string                 `json:"videoTitle,omitempty"`
	Question      *domain.Question       `json:"question,omitempty"`
	QuestionIndex int                    `json:"questionIndex,omitempty"`
	QuestionTotal int                    `json:"questionTotal,omitempty"`
	Feedback      *domain.AnswerFeedback `json:"feedback,omitempty"`
	Result        *domain.ExamResult     `json:"result,omitempty"`
}

// Bus stores recent events and provides incremental reads. An optional
// notify hook pushes each published event to the UI runtime.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	notify    func(Event)
}

// NewBus creates a bounded in-memory event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// SetNotify installs a push callback invoked for every published event.
func (b *Bus) SetNotify(notify func(Event)) {
	b.mu.Lock()
	b.notify = notify
	b.mu.Unlock()
}

// Publish appends one event and assigns sequence and timestamp.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(event)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
