package domain

import "time"

// Stage names one step of the fixed training flow. The wire value is what
// the backend stores on the session record.
type Stage string

const (
	StageRegistered Stage = "registered"
	StageGreeting   Stage = "greeting"
	StageVideo      Stage = "video"
	StagePostVideo  Stage = "post_video"
	StageAssessment Stage = "assessment"
	StageCompleted  Stage = "completed"
)

// stageOrder fixes the partial order of the happy path. Automated
// transitions never move to a lower rank.
var stageOrder = map[Stage]int{
	StageRegistered: 0,
	StageGreeting:   1,
	StageVideo:      2,
	StagePostVideo:  3,
	StageAssessment: 4,
	StageCompleted:  5,
}

// StageRank returns the position of a stage in the flow, or -1 for an
// unknown stage.
func StageRank(s Stage) int {
	rank, ok := stageOrder[s]
	if !ok {
		return -1
	}
	return rank
}

// NextStage returns the successor of a stage in the happy path.
func NextStage(s Stage) (Stage, bool) {
	switch s {
	case StageRegistered:
		return StageGreeting, true
	case StageGreeting:
		return StageVideo, true
	case StageVideo:
		return StagePostVideo, true
	case StagePostVideo:
		return StageAssessment, true
	case StageAssessment:
		return StageCompleted, true
	default:
		return "", false
	}
}

// Registration is the payload collected by the registration form.
type Registration struct {
	Name     string `json:"name"`
	JobTitle string `json:"job_title"`
	Industry string `json:"industry"`
	Company  string `json:"company,omitempty"`
}

// RegistrationResult identifies the trainee and the fresh session created
// for them.
type RegistrationResult struct {
	TraineeID int    `json:"trainee_id"`
	SessionID int    `json:"session_id"`
	Name      string `json:"name"`
}

// Session is the backend record for one training run. It is owned by the
// flow orchestrator for the lifetime of the run.
type Session struct {
	ID             int        `json:"id"`
	TraineeID      int        `json:"trainee"`
	TraineeName    string     `json:"trainee_name"`
	Status         Stage      `json:"status"`
	VideoURL       string     `json:"video_url,omitempty"`
	VideoCompleted bool       `json:"video_completed"`
	MCQScore       *int       `json:"mcq_score,omitempty"`
	MCQTotal       *int       `json:"mcq_total,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// SessionPatch carries the fields a PATCH may update.
type SessionPatch struct {
	VideoCompleted *bool `json:"video_completed,omitempty"`
	MCQScore       *int  `json:"mcq_score,omitempty"`
	MCQTotal       *int  `json:"mcq_total,omitempty"`
}

// Question is one multiple-choice item. The correct answer and explanation
// are withheld by the backend until the answer is submitted.
type Question struct {
	ID          int    `json:"id"`
	Text        string `json:"question_text"`
	OptionA     string `json:"option_a"`
	OptionB     string `json:"option_b"`
	OptionC     string `json:"option_c"`
	OptionD     string `json:"option_d"`
	Explanation string `json:"explanation,omitempty"`
}

// AnswerFeedback is the server verdict for one submitted answer.
type AnswerFeedback struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
}

// QuestionReview is one entry of the post-exam review, aligned 1:1 with the
// loaded question set.
type QuestionReview struct {
	QuestionID     int    `json:"question_id"`
	Text           string `json:"question_text"`
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Explanation    string `json:"explanation,omitempty"`
}

// ExamResult is the server-computed exam outcome. The client never
// recomputes score or percentage.
type ExamResult struct {
	Score           int              `json:"score"`
	Total           int              `json:"total"`
	Percentage      float64          `json:"percentage"`
	Feedback        string           `json:"feedback"`
	QuestionsReview []QuestionReview `json:"questions_review"`
}

// GenerationStatus is the lifecycle of a server-side greeting video job.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"

	// GenerationTimedOut and GenerationUnavailable are client-side terminal
	// outcomes: the polling budget ran out, or the backend offered neither a
	// media URL nor a job to poll.
	GenerationTimedOut    GenerationStatus = "timed_out"
	GenerationUnavailable GenerationStatus = "unavailable"
)

// GreetingResponse is the backend reply to a greeting media request. At most
// one of VideoURL and JobID is expected; both may be empty when no media
// provider is configured.
type GreetingResponse struct {
	VideoURL string `json:"video_url,omitempty"`
	JobID    string `json:"job_id,omitempty"`
}

// GenerationJob is one poll observation of a greeting video job.
type GenerationJob struct {
	JobID    string           `json:"job_id"`
	Status   GenerationStatus `json:"status"`
	VideoURL string           `json:"video_url,omitempty"`
}

// GenerationResult is the terminal outcome of one greeting media request.
type GenerationResult struct {
	Status   GenerationStatus `json:"status"`
	VideoURL string           `json:"video_url,omitempty"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	APIBaseURL             string `json:"apiBaseUrl"`
	VideoSource            string `json:"videoSource"`
	VideoTitle             string `json:"videoTitle"`
	NarrationEnabled       bool   `json:"narrationEnabled"`
	MediaGenerationEnabled bool   `json:"mediaGenerationEnabled"`
	VoiceLocale            string `json:"voiceLocale"`
	VoiceGenderHint        string `json:"voiceGenderHint"`
	// ForceGestureGate holds narration behind a tap even on platforms whose
	// autoplay policy would allow it. Useful for shared kiosks with audio
	// restrictions.
	ForceGestureGate bool `json:"forceGestureGate"`
}
