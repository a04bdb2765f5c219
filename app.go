package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voicetutor/internal/bootstrap"
	"voicetutor/internal/config"
	"voicetutor/internal/domain"
	"voicetutor/internal/ports"
	"voicetutor/internal/providers/tutorws"
	"voicetutor/internal/usecase"
)

const (
	eventState      = "voicetutor:state"
	eventTutor      = "voicetutor:tutor"
	eventTranscript = "voicetutor:transcript"
	eventResponse   = "voicetutor:response"
	eventListening  = "voicetutor:listening"
	eventSpeaking   = "voicetutor:speaking"
	eventError      = "voicetutor:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.VoiceController
	provider   *tutorws.Provider
	clipboard  ports.Clipboard
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.clipboard = &wailsClipboard{}

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.VoiceError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.provider = services.Provider
	a.ConnectionStateChanged(domain.StateIdle, domain.ReasonReady)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.Disconnect()
	}
}

// Connect opens a voice session against the tutoring service. The controller
// emits its own error events, so failures are only returned here.
func (a *App) Connect(session domain.SessionConfig) (domain.VoiceStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.VoiceStatus{}, err
	}
	err := a.controller.Connect(a.ctx, session)
	return a.controller.Status(), err
}

// Disconnect ends the current voice session.
func (a *App) Disconnect() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Disconnect()
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.VoiceStatus {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.VoiceStatus{
				State: domain.StateIdle,
				Error: domain.NewError(domain.ErrorCodeStartup, a.bootErr.Error()),
			}
		}
		return domain.VoiceStatus{State: domain.StateIdle}
	}
	return a.controller.Status()
}

// SetAuthToken replaces the token used for subsequent sessions.
func (a *App) SetAuthToken(token string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.provider.SetToken(token)
	return nil
}

// CopyResponse copies the latest tutor response text to the clipboard.
func (a *App) CopyResponse() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	status := a.controller.Status()
	if status.Response == "" {
		return fmt.Errorf("no tutor response to copy")
	}
	return a.clipboard.SetText(a.ctx, status.Response)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"server":          a.cfg.Server.BaseURL,
		"captureRate":     strconv.Itoa(a.cfg.Audio.CaptureRate),
		"playbackRate":    strconv.Itoa(a.cfg.Audio.PlaybackRate),
		"channels":        strconv.Itoa(a.cfg.Audio.Channels),
		"framesPerBuffer": strconv.Itoa(a.cfg.Audio.FramesPerBuffer),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ConnectionStateChanged emits session lifecycle updates to the frontend.
func (a *App) ConnectionStateChanged(state domain.ConnectionState, reason domain.StateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateMessage(reason),
	})
}

// TutorMessage emits the session greeting.
func (a *App) TutorMessage(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTutor, map[string]string{"text": text})
}

// UserTranscript emits recognized user speech.
func (a *App) UserTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": text})
}

// ResponseText emits the tutor's textual reply.
func (a *App) ResponseText(text string, isError bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventResponse, map[string]any{
		"text":    text,
		"isError": isError,
	})
}

// ListeningChanged emits microphone activity changes.
func (a *App) ListeningChanged(listening bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventListening, map[string]bool{"listening": listening})
}

// SpeakingChanged emits tutor audio activity changes.
func (a *App) SpeakingChanged(speaking bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSpeaking, map[string]bool{"speaking": speaking})
}

// VoiceError emits backend errors to the UI.
func (a *App) VoiceError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func stateMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonReady:
		return "Ready to connect"
	case domain.ReasonConnectRequested:
		return "Connecting to your tutor..."
	case domain.ReasonChannelOpen:
		return "Connected. Start speaking when ready"
	case domain.ReasonDisconnectRequested:
		return "Ending session..."
	case domain.ReasonDisconnected:
		return "Session ended"
	case domain.ReasonChannelClosed:
		return "Session closed by the tutor service"
	case domain.ReasonChannelFailed:
		return "Connection lost"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeConfig:
		return "Session setup is incomplete"
	case domain.ErrorCodeCapability:
		return "This device cannot run voice sessions"
	case domain.ErrorCodePermission:
		return "Microphone access was denied"
	case domain.ErrorCodeProtocol:
		return "Received an unreadable message"
	case domain.ErrorCodeChannel:
		return "Connection problem"
	case domain.ErrorCodeServer:
		return "The tutor service reported an error"
	case domain.ErrorCodeAudio:
		return "Audio device problem"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
