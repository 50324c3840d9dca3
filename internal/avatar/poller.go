// Package avatar fetches the AI-generated greeting video, polling the
// backend job until a terminal status or the attempt budget runs out.
package avatar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"training-kiosk/internal/clock"
	"training-kiosk/internal/domain"
)

// API is the slice of the backend contract the poller needs.
type API interface {
	RequestGreeting(ctx context.Context, sessionID int) (domain.GreetingResponse, error)
	GreetingJobStatus(ctx context.Context, jobID string) (domain.GenerationJob, error)
}

const (
	defaultInterval    = 2 * time.Second
	defaultMaxAttempts = 30
)

// Poller submits one greeting request and resolves its terminal outcome.
// The interval is deliberately fixed: job completion time is bounded and
// roughly uniform, so backoff growth would only delay the user.
type Poller struct {
	api         API
	clock       clock.Clock
	interval    time.Duration
	maxAttempts int
	log         *zap.Logger
}

// NewPoller creates a poller with the standard 2s x 30 budget.
func NewPoller(api API, clk clock.Clock, log *zap.Logger) *Poller {
	return &Poller{
		api:         api,
		clock:       clk,
		interval:    defaultInterval,
		maxAttempts: defaultMaxAttempts,
		log:         log,
	}
}

// Generate requests greeting media for the session and blocks until a
// terminal outcome. Failures are encoded in the result status so the flow
// can proceed without media; the returned error is non-nil only when the
// caller's context is cancelled, in which case the result must be ignored.
func (p *Poller) Generate(ctx context.Context, sessionID int) (domain.GenerationResult, error) {
	resp, err := p.api.RequestGreeting(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return domain.GenerationResult{}, ctx.Err()
		}
		p.log.Warn("greeting request failed", zap.Int("session_id", sessionID), zap.Error(err))
		return domain.GenerationResult{Status: domain.GenerationFailed}, nil
	}

	if resp.VideoURL != "" {
		// Zero-poll path: media was ready at submission time.
		return domain.GenerationResult{Status: domain.GenerationCompleted, VideoURL: resp.VideoURL}, nil
	}
	if resp.JobID == "" {
		return domain.GenerationResult{Status: domain.GenerationUnavailable}, nil
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return domain.GenerationResult{}, ctx.Err()
		case <-p.clock.After(p.interval):
		}

		job, err := p.api.GreetingJobStatus(ctx, resp.JobID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.GenerationResult{}, ctx.Err()
			}
			p.log.Warn("greeting job poll failed",
				zap.String("job_id", resp.JobID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return domain.GenerationResult{Status: domain.GenerationFailed}, nil
		}

		switch {
		case job.Status == domain.GenerationCompleted && job.VideoURL != "":
			return domain.GenerationResult{Status: domain.GenerationCompleted, VideoURL: job.VideoURL}, nil
		case job.Status == domain.GenerationFailed:
			p.log.Warn("greeting generation failed", zap.String("job_id", resp.JobID))
			return domain.GenerationResult{Status: domain.GenerationFailed}, nil
		}
	}

	p.log.Warn("greeting generation timed out",
		zap.String("job_id", resp.JobID),
		zap.Int("attempts", p.maxAttempts))
	return domain.GenerationResult{Status: domain.GenerationTimedOut}, nil
}
