// Package usecase implements the voice session state machine: one live
// connection at a time, with capture, playback, and teardown coordinated
// around the channel lifecycle.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voicetutor/internal/domain"
	"voicetutor/internal/ports"
	"voicetutor/internal/protocol"
)

// Config carries the audio parameters for new connections.
type Config struct {
	Capture ports.CaptureConfig
	Render  ports.RenderConfig
}

// VoiceController owns the session lifecycle and the resources of the
// current connection.
type VoiceController struct {
	platform ports.AudioPlatform
	provider ports.ChannelProvider
	events   ports.EventSink
	cfg      Config
	log      *slog.Logger

	mu      sync.Mutex
	state   domain.ConnectionState
	current *activeConn

	text conversationState

	errMu     sync.Mutex
	lastError *domain.Error
}

// NewVoiceController builds a controller in the idle state.
func NewVoiceController(platform ports.AudioPlatform, provider ports.ChannelProvider, events ports.EventSink, cfg Config, log *slog.Logger) *VoiceController {
	if log == nil {
		log = slog.Default()
	}
	return &VoiceController{
		platform: platform,
		provider: provider,
		events:   events,
		cfg:      cfg,
		log:      log,
		state:    domain.StateIdle,
	}
}

// Connect opens a voice channel for the session and starts audio capture.
// A session that is already connecting or connected is left untouched.
func (c *VoiceController) Connect(ctx context.Context, session domain.SessionConfig) error {
	if strings.TrimSpace(session.SessionID) == "" {
		err := domain.NewError(domain.ErrorCodeConfig, "session id is required")
		c.reportError(err.Code, err.Message)
		return err
	}
	if err := c.platform.Supported(); err != nil {
		typed := domain.NewError(domain.ErrorCodeCapability, "audio is not available on this system: "+err.Error())
		c.reportError(typed.Code, typed.Message)
		return typed
	}

	c.mu.Lock()
	switch c.state {
	case domain.StateConnecting, domain.StateOpen, domain.StateClosing:
		state := c.state
		c.mu.Unlock()
		c.log.Info("connect ignored: session already active", "state", state)
		return nil
	}
	connCtx, cancel := context.WithCancel(ctx)
	active := newActiveConn(uuid.NewString(), connCtx, cancel)
	c.current = active
	c.state = domain.StateConnecting
	c.mu.Unlock()
	c.events.ConnectionStateChanged(domain.StateConnecting, domain.ReasonConnectRequested)

	log := c.log.With("conn_id", active.id, "session_id", session.SessionID)
	log.Info("opening voice channel")

	channel, err := c.provider.Open(connCtx, session)
	if err != nil {
		cancel()
		c.mu.Lock()
		if c.current == active {
			c.current = nil
		}
		c.state = domain.StateClosed
		c.mu.Unlock()
		c.events.ConnectionStateChanged(domain.StateClosed, domain.ReasonChannelFailed)
		typed := asTypedError(err, domain.ErrorCodeChannel)
		c.reportError(typed.Code, typed.Message)
		log.Warn("voice channel dial failed", "error", err)
		return typed
	}

	active.resMu.Lock()
	active.channel = channel
	active.resMu.Unlock()

	if active.closed.Load() {
		// A concurrent disconnect won the race; drop the fresh channel.
		channel.Close()
		cancel()
		return nil
	}

	c.setState(domain.StateOpen, domain.ReasonChannelOpen)
	c.clearLastError()
	log.Info("voice channel established")

	if err := c.startCapture(active); err != nil {
		typed := asTypedError(err, domain.ErrorCodeAudio)
		c.reportError(typed.Code, typed.Message)
		log.Warn("audio capture unavailable", "error", err)
		// The channel stays open: the tutor session survives without a mic.
		go c.dispatchLoop(active, log)
		return typed
	}

	go c.dispatchLoop(active, log)
	return nil
}

// State reports the current connection state.
func (c *VoiceController) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Disconnect ends the current session. Calling it without a session is a
// no-op.
func (c *VoiceController) Disconnect() error {
	c.mu.Lock()
	active := c.current
	if active == nil {
		c.mu.Unlock()
		c.log.Debug("disconnect requested with no active session")
		return nil
	}
	c.state = domain.StateClosing
	c.mu.Unlock()
	c.events.ConnectionStateChanged(domain.StateClosing, domain.ReasonDisconnectRequested)

	c.teardown(active, domain.ReasonDisconnected)
	return nil
}

// teardown releases a connection's resources in a fixed order: channel first
// so the server stops streaming, then capture, then the render context, then
// queued playback, then the retained text and error state.
func (c *VoiceController) teardown(active *activeConn, reason domain.StateReason) {
	active.teardownOnce.Do(func() {
		active.closed.Store(true)
		active.cancel()

		active.resMu.Lock()
		channel := active.channel
		render := active.render
		playback := active.playback
		active.render = nil
		active.playback = nil
		active.resMu.Unlock()

		if channel != nil {
			channel.Close()
		}
		c.stopCapture(active)
		if render != nil {
			render.Close()
		}
		if playback != nil {
			playback.Shutdown()
		}

		c.text.Reset()
		c.clearLastError()

		c.mu.Lock()
		if c.current == active {
			c.current = nil
		}
		c.state = domain.StateClosed
		c.mu.Unlock()
		c.events.ConnectionStateChanged(domain.StateClosed, reason)
	})
}

// dispatchLoop consumes inbound messages until the channel ends, then
// resolves how the session terminated.
func (c *VoiceController) dispatchLoop(active *activeConn, log *slog.Logger) {
	defer close(active.dispatchDone)

	for payload := range active.channel.Inbound() {
		c.handleInbound(active, payload, log)
	}

	err := active.channel.Wait()
	if active.closed.Load() {
		// Disconnect already ran the teardown.
		return
	}

	var closure *domain.ChannelClosure
	switch {
	case err == nil:
		log.Info("voice channel closed by server")
		c.teardown(active, domain.ReasonChannelClosed)
	case errors.As(err, &closure):
		log.Warn("voice channel closed abnormally", "code", closure.Code, "reason", closure.Reason)
		c.teardown(active, domain.ReasonChannelFailed)
		c.reportError(domain.ErrorCodeChannel, closure.Error())
	default:
		log.Warn("voice channel failed", "error", err)
		c.teardown(active, domain.ReasonChannelFailed)
		c.reportError(domain.ErrorCodeChannel, "connection lost: "+err.Error())
	}
}

func (c *VoiceController) handleInbound(active *activeConn, payload []byte, log *slog.Logger) {
	event, err := protocol.Decode(payload)
	if err != nil {
		log.Warn("undecodable message from server", "error", err)
		c.reportError(domain.ErrorCodeProtocol, "malformed message from server: "+err.Error())
		return
	}

	switch ev := event.(type) {
	case protocol.ConnectionEstablished:
		log.Info("tutor session ready", "message", ev.Message)
		c.events.TutorMessage(ev.Message)
	case protocol.UserTranscript:
		c.text.SetTranscript(ev.Transcript)
		c.events.UserTranscript(ev.Transcript)
	case protocol.AIResponseText:
		c.text.SetResponse(ev.Text)
		c.events.ResponseText(ev.Text, ev.IsError)
	case protocol.TTSAudio:
		clip, err := protocol.DecodeClipPayload(ev.Audio)
		if err != nil {
			c.reportError(domain.ErrorCodeProtocol, "invalid tutor audio clip: "+err.Error())
			return
		}
		if pb := active.playbackPipeline(); pb != nil {
			pb.PlayClip(clip)
		}
	case protocol.AudioDelta:
		samples, err := protocol.DecodePCM16(ev.Delta)
		if err != nil {
			c.reportError(domain.ErrorCodeProtocol, "invalid audio chunk: "+err.Error())
			return
		}
		if pb := active.playbackPipeline(); pb != nil {
			pb.Enqueue(samples)
		}
	case protocol.AudioDone:
		log.Debug("audio response complete")
	case protocol.ErrorEvent:
		c.reportError(domain.ErrorCodeServer, ev.Message)
	case protocol.UnknownEvent:
		log.Debug("ignoring unhandled message type", "type", ev.Type)
	}
}

// Status snapshots the session for the UI.
func (c *VoiceController) Status() domain.VoiceStatus {
	c.mu.Lock()
	state := c.state
	active := c.current
	c.mu.Unlock()

	status := domain.VoiceStatus{State: state}
	if active != nil {
		status.Listening = active.listening.Load()
		if pb := active.playbackPipeline(); pb != nil {
			status.Speaking = pb.Speaking()
		}
	}
	status.Transcript, status.Response = c.text.Snapshot()

	c.errMu.Lock()
	status.Error = c.lastError
	c.errMu.Unlock()
	return status
}

// reportError records the failure and emits it to the UI.
func (c *VoiceController) reportError(code domain.ErrorCode, detail string) {
	c.errMu.Lock()
	c.lastError = domain.NewError(code, detail)
	c.errMu.Unlock()
	c.events.VoiceError(code, detail)
}

func (c *VoiceController) clearLastError() {
	c.errMu.Lock()
	c.lastError = nil
	c.errMu.Unlock()
}

func (c *VoiceController) setState(state domain.ConnectionState, reason domain.StateReason) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.events.ConnectionStateChanged(state, reason)
}

// asTypedError normalizes provider and platform failures into domain errors.
func asTypedError(err error, fallback domain.ErrorCode) *domain.Error {
	var typed *domain.Error
	if errors.As(err, &typed) {
		return typed
	}
	return domain.NewError(fallback, err.Error())
}
