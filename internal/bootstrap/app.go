// Package bootstrap wires configuration, the backend client, the flow
// engine, and the Wails UI runtime into one desktop application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"training-kiosk/internal/api"
	"training-kiosk/internal/avatar"
	"training-kiosk/internal/clock"
	"training-kiosk/internal/config"
	"training-kiosk/internal/diagnostics"
	"training-kiosk/internal/domain"
	"training-kiosk/internal/flow"
	"training-kiosk/internal/logging"
	"training-kiosk/internal/narration"
	"training-kiosk/internal/quiz"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// App wires configuration, the training flow, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Diagnostics domain.DiagnosticReport

	assets  fs.FS
	checker *diagnostics.Checker
	log     *zap.Logger
	clock   clock.Clock
	bus     *flow.Bus
	speech  *speechBridge

	mu         sync.Mutex
	client     *api.Client
	flow       *flow.Orchestrator
	quiz       *quiz.Engine
	userAgent  string
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	env, err := config.ParseEnv()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(env.LogMode)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	settingsDir := filepath.Join(homeDir, ".training-kiosk")

	store := config.NewJSONStore(filepath.Join(settingsDir, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	// The environment wins over the built-in default, never over a URL the
	// operator saved explicitly.
	if settings.APIBaseURL == config.DefaultSettings().APIBaseURL && env.APIBaseURL != "" {
		settings.APIBaseURL = env.APIBaseURL
	}

	checker := diagnostics.NewChecker(settingsDir)

	app := &App{
		Settings:    settings,
		Store:       store,
		Diagnostics: checker.Run(settings),
		assets:      assets,
		checker:     checker,
		log:         logger,
		clock:       clock.System{},
		bus:         flow.NewBus(500),
		speech:      &speechBridge{},
		client:      api.New(settings.APIBaseURL, logger),
	}

	app.bus.SetNotify(app.pushEvent)
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Training Kiosk",
		Width:       1280,
		Height:      800,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			a.runtimeCtx = nil
			a.mu.Unlock()
			a.speech.setContext(nil)
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events and speech.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()
	a.speech.setContext(ctx)
}

// Register creates a trainee and their session on the backend.
func (a *App) Register(reg domain.Registration) (domain.RegistrationResult, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.JobTitle = strings.TrimSpace(reg.JobTitle)
	reg.Industry = strings.TrimSpace(reg.Industry)
	reg.Company = strings.TrimSpace(reg.Company)
	if reg.Name == "" || reg.JobTitle == "" || reg.Industry == "" {
		return domain.RegistrationResult{}, errors.New("name, job title and industry are required")
	}

	result, err := a.apiClient().RegisterTrainee(context.Background(), reg)
	if err != nil {
		return domain.RegistrationResult{}, fmt.Errorf("register trainee: %w", err)
	}

	a.log.Info("trainee registered",
		zap.Int("trainee_id", result.TraineeID),
		zap.Int("session_id", result.SessionID))
	return result, nil
}

// StartSession builds a fresh flow for the session and enters the greeting
// stage. Settings changes take effect here, at run boundaries.
func (a *App) StartSession(sessionID int) error {
	a.mu.Lock()
	settings := a.Settings
	userAgent := a.userAgent
	client := a.client
	a.mu.Unlock()

	narrator := narration.NewController(a.speech, a.clock, settings.VoiceLocale, settings.VoiceGenderHint, a.log)
	gesture := settings.ForceGestureGate || narration.RequiresGesture(narration.PlatformInfo{
		OS:        goruntime.GOOS,
		UserAgent: userAgent,
	})

	var orch *flow.Orchestrator
	quizEngine := quiz.NewEngine(client, narrator, a.bus, a.clock, settings.NarrationEnabled, quiz.Hooks{
		OnResult:   func(result domain.ExamResult) { orch.AssessmentCompleted(result) },
		OnFinished: func() { orch.AssessmentClosed() },
	}, a.log)

	orch = flow.NewOrchestrator(client, avatar.NewPoller(client, a.clock, a.log), narrator, quizEngine, a.bus, a.clock, flow.Config{
		NarrationEnabled:       settings.NarrationEnabled,
		MediaGenerationEnabled: settings.MediaGenerationEnabled,
		GestureRequired:        gesture,
		VideoSource:            settings.VideoSource,
		VideoTitle:             settings.VideoTitle,
	}, a.log)

	a.mu.Lock()
	a.flow = orch
	a.quiz = quizEngine
	a.mu.Unlock()

	return orch.Start(context.Background(), sessionID)
}

// SkipStage advances the active flow past the current stage.
func (a *App) SkipStage() error {
	orch, err := a.currentFlow()
	if err != nil {
		return err
	}
	return orch.Skip()
}

// VideoEnded reports that the training video finished playing.
func (a *App) VideoEnded() error {
	orch, err := a.currentFlow()
	if err != nil {
		return err
	}
	return orch.VideoEnded()
}

// Gesture reports the first user interaction on gesture-gated platforms.
func (a *App) Gesture() error {
	orch, err := a.currentFlow()
	if err != nil {
		return err
	}
	orch.Gesture()
	return nil
}

// SelectAnswer records an option for the current assessment question.
func (a *App) SelectAnswer(questionID int, option string) error {
	engine, err := a.currentQuiz()
	if err != nil {
		return err
	}
	return engine.Select(questionID, option)
}

// SubmitAnswer submits the selected option for the current question.
func (a *App) SubmitAnswer() error {
	engine, err := a.currentQuiz()
	if err != nil {
		return err
	}
	return engine.SubmitCurrent()
}

// FlowEvents returns all flow events with sequence greater than sinceSeq.
func (a *App) FlowEvents(sinceSeq int64) []flow.Event {
	return a.bus.Since(sinceSeq)
}

// FlowState returns the current session and stage for UI reloads.
func (a *App) FlowState() (flow.Snapshot, error) {
	orch, err := a.currentFlow()
	if err != nil {
		return flow.Snapshot{}, err
	}
	return orch.State(), nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, rebuilds the backend
// client, and refreshes diagnostics. The active run keeps its old
// configuration; the next StartSession picks up the change.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	a.client = api.New(normalized.APIBaseURL, a.log)
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns the startup checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	report := a.checker.Run(settings)
	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = report
	a.mu.Unlock()
	return report, nil
}

// VoiceCatalog returns the known-good voice presets for the settings UI.
func (a *App) VoiceCatalog() []narration.VoiceOption {
	return narration.VoiceCatalog()
}

// ReportVoices receives the webview's populated speech voice list.
func (a *App) ReportVoices(voices []narration.Voice) {
	a.speech.setVoices(voices)
	a.log.Debug("voices reported", zap.Int("count", len(voices)))
}

// ReportUserAgent records the webview user agent for platform detection.
func (a *App) ReportUserAgent(userAgent string) {
	a.mu.Lock()
	a.userAgent = userAgent
	a.mu.Unlock()
}

// NarrationEnded reports one utterance finishing normally in the webview.
func (a *App) NarrationEnded(utteranceID string) {
	a.speech.finish(utteranceID, nil)
}

// NarrationFailed reports one utterance failing in the webview.
func (a *App) NarrationFailed(utteranceID, message string) {
	if message == "" {
		message = "speech synthesis error"
	}
	a.speech.finish(utteranceID, errors.New(message))
}

func (a *App) currentFlow() (*flow.Orchestrator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.flow == nil {
		return nil, flow.ErrNoActiveSession
	}
	return a.flow, nil
}

func (a *App) currentQuiz() (*quiz.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quiz == nil {
		return nil, flow.ErrNoActiveSession
	}
	return a.quiz, nil
}

func (a *App) apiClient() *api.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// pushEvent forwards one bus event to the webview when the runtime is up.
func (a *App) pushEvent(event flow.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "flow:event", event)
	}
}

// normalizeSettings trims user inputs and restores required defaults.
func normalizeSettings(settings domain.Settings) domain.Settings {
	defaults := config.DefaultSettings()

	settings.APIBaseURL = strings.TrimRight(strings.TrimSpace(settings.APIBaseURL), "/")
	settings.VideoSource = strings.TrimSpace(settings.VideoSource)
	settings.VideoTitle = strings.TrimSpace(settings.VideoTitle)
	settings.VoiceLocale = strings.TrimSpace(settings.VoiceLocale)
	settings.VoiceGenderHint = strings.ToLower(strings.TrimSpace(settings.VoiceGenderHint))

	if settings.APIBaseURL == "" {
		settings.APIBaseURL = defaults.APIBaseURL
	}
	if settings.VideoSource == "" {
		settings.VideoSource = defaults.VideoSource
	}
	if settings.VideoTitle == "" {
		settings.VideoTitle = defaults.VideoTitle
	}
	if settings.VoiceLocale == "" {
		settings.VoiceLocale = defaults.VoiceLocale
	}
	return settings
}
