package flow

import (
	"testing"

	"training-kiosk/internal/domain"
)

// TestBusSequencesEvents assigns monotonically increasing sequence numbers.
func TestBusSequencesEvents(t *testing.T) {
	bus := NewBus(10)

	first := bus.Publish(Event{Type: EventTypeStage, Stage: domain.StageGreeting})
	second := bus.Publish(Event{Type: EventTypeMedia})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("timestamp not assigned")
	}
}

// TestBusSinceReturnsOnlyNewer filters by sequence.
func TestBusSinceReturnsOnlyNewer(t *testing.T) {
	bus := NewBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeStage})
	}

	got := bus.Since(3)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("seqs = %d, %d, want 4, 5", got[0].Seq, got[1].Seq)
	}

	if got := bus.Since(5); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

// TestBusTrimsToBound keeps only the newest maxEvents entries.
func TestBusTrimsToBound(t *testing.T) {
	bus := NewBus(3)
	for i := 0; i < 8; i++ {
		bus.Publish(Event{Type: EventTypeStage})
	}

	got := bus.Since(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Seq != 6 {
		t.Fatalf("oldest kept seq = %d, want 6", got[0].Seq)
	}
}

// TestBusNotifyHook pushes every published event.
func TestBusNotifyHook(t *testing.T) {
	bus := NewBus(10)

	var got []Event
	bus.SetNotify(func(e Event) { got = append(got, e) })

	bus.Publish(Event{Type: EventTypeQuestion})
	bus.Publish(Event{Type: EventTypeFeedback})

	if len(got) != 2 {
		t.Fatalf("notified = %d, want 2", len(got))
	}
	if got[0].Type != EventTypeQuestion || got[1].Type != EventTypeFeedback {
		t.Fatalf("types = %s, %s", got[0].Type, got[1].Type)
	}
}
