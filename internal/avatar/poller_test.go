package avatar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"training-kiosk/internal/domain"
)

// immediateClock fires timers instantly and counts how many were created.
type immediateClock struct {
	mu     sync.Mutex
	afters int
}

func (c *immediateClock) Now() time.Time { return time.Time{} }

func (c *immediateClock) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.afters++
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (c *immediateClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.afters
}

// blockedClock never fires, used to exercise cancellation.
type blockedClock struct{}

func (blockedClock) Now() time.Time                       { return time.Time{} }
func (blockedClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

type fakeAPI struct {
	greeting    domain.GreetingResponse
	greetingErr error
	statuses    []domain.GenerationJob
	statusErr   error
	polls       int
}

func (f *fakeAPI) RequestGreeting(ctx context.Context, sessionID int) (domain.GreetingResponse, error) {
	return f.greeting, f.greetingErr
}

func (f *fakeAPI) GreetingJobStatus(ctx context.Context, jobID string) (domain.GenerationJob, error) {
	if f.statusErr != nil {
		return domain.GenerationJob{}, f.statusErr
	}
	idx := f.polls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.polls++
	return f.statuses[idx], nil
}

func newTestPoller(api API, clk *immediateClock) *Poller {
	p := NewPoller(api, clk, zap.NewNop())
	return p
}

// TestZeroPollPath verifies an immediately ready URL skips polling.
func TestZeroPollPath(t *testing.T) {
	clk := &immediateClock{}
	api := &fakeAPI{greeting: domain.GreetingResponse{VideoURL: "x.mp4"}}

	result, err := newTestPoller(api, clk).Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Status != domain.GenerationCompleted || result.VideoURL != "x.mp4" {
		t.Fatalf("result = %+v", result)
	}
	if clk.count() != 0 || api.polls != 0 {
		t.Fatalf("expected zero polling, got %d waits %d polls", clk.count(), api.polls)
	}
}

// TestPendingThenCompleted resolves after the first terminal poll.
func TestPendingThenCompleted(t *testing.T) {
	clk := &immediateClock{}
	pending := domain.GenerationJob{JobID: "J1", Status: domain.GenerationPending}
	api := &fakeAPI{
		greeting: domain.GreetingResponse{JobID: "J1"},
		statuses: []domain.GenerationJob{
			pending, pending, pending, pending, pending,
			{JobID: "J1", Status: domain.GenerationCompleted, VideoURL: "greeting.mp4"},
		},
	}

	result, err := newTestPoller(api, clk).Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Status != domain.GenerationCompleted || result.VideoURL != "greeting.mp4" {
		t.Fatalf("result = %+v", result)
	}
	if api.polls != 6 {
		t.Fatalf("polls = %d, want 6", api.polls)
	}
	if clk.count() != 6 {
		t.Fatalf("ticks = %d, want 6", clk.count())
	}
}

// TestFailedStatusIsTerminal stops polling on the first failed status.
func TestFailedStatusIsTerminal(t *testing.T) {
	clk := &immediateClock{}
	api := &fakeAPI{
		greeting: domain.GreetingResponse{JobID: "J1"},
		statuses: []domain.GenerationJob{{JobID: "J1", Status: domain.GenerationFailed}},
	}

	result, err := newTestPoller(api, clk).Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Status != domain.GenerationFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if api.polls != 1 {
		t.Fatalf("polls = %d, want 1", api.polls)
	}
}

// TestAttemptBudgetExhaustion resolves TimedOut after 30 polls.
func TestAttemptBudgetExhaustion(t *testing.T) {
	clk := &immediateClock{}
	api := &fakeAPI{
		greeting: domain.GreetingResponse{JobID: "J1"},
		statuses: []domain.GenerationJob{{JobID: "J1", Status: domain.GenerationPending}},
	}

	result, err := newTestPoller(api, clk).Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Status != domain.GenerationTimedOut {
		t.Fatalf("status = %s, want timed_out", result.Status)
	}
	if api.polls != 30 {
		t.Fatalf("polls = %d, want 30", api.polls)
	}
}

// TestNoMediaNoJob maps an empty reply to unavailable.
func TestNoMediaNoJob(t *testing.T) {
	clk := &immediateClock{}
	api := &fakeAPI{}

	result, err := newTestPoller(api, clk).Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Status != domain.GenerationUnavailable {
		t.Fatalf("status = %s, want unavailable", result.Status)
	}
}

// TestSubmitErrorBecomesFailed keeps the flow unblocked on request errors.
func TestSubmitErrorBecomesFailed(t *testing.T) {
	clk := &immediateClock{}
	api := &fakeAPI{greetingErr: errors.New("connection refused")}

	result, err := newTestPoller(api, clk).Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Status != domain.GenerationFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
}

// TestCancellationAbortsLoop returns the context error mid-poll.
func TestCancellationAbortsLoop(t *testing.T) {
	api := &fakeAPI{
		greeting: domain.GreetingResponse{JobID: "J1"},
		statuses: []domain.GenerationJob{{JobID: "J1", Status: domain.GenerationPending}},
	}
	p := NewPoller(api, blockedClock{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Generate(ctx, 1)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generate did not return after cancellation")
	}
}
