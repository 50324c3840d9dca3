package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"training-kiosk/internal/domain"
)

// TestGetSessionDecodesRecord verifies path construction and decoding.
func TestGetSessionDecodesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/users/sessions/7/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           7,
			"trainee":      3,
			"trainee_name": "Ada",
			"status":       "registered",
		})
	}))
	defer srv.Close()

	client := New(srv.URL+"/api", zap.NewNop())
	session, err := client.GetSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.ID != 7 || session.TraineeName != "Ada" || session.Status != domain.StageRegistered {
		t.Fatalf("session = %+v", session)
	}
}

// TestUpdateStatusSendsStage checks the status transition payload.
func TestUpdateStatusSendsStage(t *testing.T) {
	var got struct {
		Status string `json:"status"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/sessions/7/status/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "status": got.Status})
	}))
	defer srv.Close()

	client := New(srv.URL, zap.NewNop())
	session, err := client.UpdateStatus(context.Background(), 7, domain.StageVideo)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Status != "video" {
		t.Fatalf("sent status = %q, want video", got.Status)
	}
	if session.Status != domain.StageVideo {
		t.Fatalf("session status = %q", session.Status)
	}
}

// TestSubmitAnswerRoundTrip checks request fields and verdict decoding.
func TestSubmitAnswerRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			QuestionID     int    `json:"question_id"`
			SelectedAnswer string `json:"selected_answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.QuestionID != 42 || body.SelectedAnswer != "B" {
			t.Errorf("body = %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"is_correct": false, "correct_answer": "C"})
	}))
	defer srv.Close()

	client := New(srv.URL, zap.NewNop())
	verdict, err := client.SubmitAnswer(context.Background(), 7, 42, "B")
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if verdict.IsCorrect || verdict.CorrectAnswer != "C" {
		t.Fatalf("verdict = %+v", verdict)
	}
}

// TestQuestionsUnwrapsEnvelope checks the {questions: [...]} wrapper.
func TestQuestionsUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"questions": []map[string]any{
				{"id": 1, "question_text": "Q1", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d"},
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, zap.NewNop())
	questions, err := client.Questions(context.Background(), 7)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Text != "Q1" {
		t.Fatalf("questions = %+v", questions)
	}
}

// TestNon2xxBecomesAPIError verifies the typed error with status code.
func TestNon2xxBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Session not found"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, zap.NewNop())
	_, err := client.GetSession(context.Background(), 999)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", apiErr.StatusCode)
	}
}

// TestContextCancellationAborts ensures requests honor the caller context.
func TestContextCancellationAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(srv.URL, zap.NewNop())
	if _, err := client.GetSession(ctx, 1); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
