// Package api implements the training backend REST contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"training-kiosk/internal/domain"
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// Client calls the training backend. All methods honor the request context.
type Client struct {
	http    *http.Client
	baseURL string
	log     *zap.Logger
}

// New creates a client for the given base URL, e.g. "http://host:8000/api".
func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// RegisterTrainee creates a trainee and their training session.
func (c *Client) RegisterTrainee(ctx context.Context, reg domain.Registration) (domain.RegistrationResult, error) {
	var out domain.RegistrationResult
	err := c.do(ctx, http.MethodPost, "/users/register/", reg, &out)
	return out, err
}

// GetSession fetches one session record.
func (c *Client) GetSession(ctx context.Context, sessionID int) (domain.Session, error) {
	var out domain.Session
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/sessions/%d/", sessionID), nil, &out)
	return out, err
}

// UpdateStatus moves the session record to the given stage.
func (c *Client) UpdateStatus(ctx context.Context, sessionID int, stage domain.Stage) (domain.Session, error) {
	body := struct {
		Status domain.Stage `json:"status"`
	}{Status: stage}

	var out domain.Session
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/sessions/%d/status/", sessionID), body, &out)
	return out, err
}

// PatchSession applies a partial update to the session record.
func (c *Client) PatchSession(ctx context.Context, sessionID int, patch domain.SessionPatch) (domain.Session, error) {
	var out domain.Session
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/sessions/%d/", sessionID), patch, &out)
	return out, err
}

// RequestGreeting asks the backend to produce the personalized greeting
// video. The reply carries either a ready URL or a job to poll.
func (c *Client) RequestGreeting(ctx context.Context, sessionID int) (domain.GreetingResponse, error) {
	var out domain.GreetingResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/sessions/%d/avatar-greeting/", sessionID), nil, &out)
	return out, err
}

// GreetingJobStatus polls one greeting generation job.
func (c *Client) GreetingJobStatus(ctx context.Context, jobID string) (domain.GenerationJob, error) {
	var out domain.GenerationJob
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/avatar-status/%s/", jobID), nil, &out)
	return out, err
}

// Questions fetches the question set for a session.
func (c *Client) Questions(ctx context.Context, sessionID int) ([]domain.Question, error) {
	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assessments/sessions/%d/questions/", sessionID), nil, &out)
	return out.Questions, err
}

// AutoGenerateQuestions asks the backend to generate a question set.
func (c *Client) AutoGenerateQuestions(ctx context.Context, sessionID, count int) ([]domain.Question, error) {
	body := struct {
		NumQuestions int `json:"num_questions"`
	}{NumQuestions: count}

	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/assessments/sessions/%d/auto-generate/", sessionID), body, &out)
	return out.Questions, err
}

// SubmitAnswer records one answer and returns the server verdict.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, questionID int, selected string) (domain.AnswerFeedback, error) {
	body := struct {
		QuestionID     int    `json:"question_id"`
		SelectedAnswer string `json:"selected_answer"`
	}{QuestionID: questionID, SelectedAnswer: selected}

	var out domain.AnswerFeedback
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/assessments/sessions/%d/answer/", sessionID), body, &out)
	return out, err
}

// SubmitExam finalizes the exam and returns the server-computed result.
func (c *Client) SubmitExam(ctx context.Context, sessionID int) (domain.ExamResult, error) {
	var out domain.ExamResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/assessments/sessions/%d/submit/", sessionID), nil, &out)
	return out, err
}

// do issues one JSON round-trip and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
