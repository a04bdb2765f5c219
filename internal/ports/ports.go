package ports

import (
	"context"
	"errors"

	"voicetutor/internal/domain"
)

// ErrPermissionDenied marks capture-device acquisition failures caused by
// denied or unavailable microphone access.
var ErrPermissionDenied = errors.New("capture permission denied")

// ErrRenderClosed is returned by render operations after the context closed.
var ErrRenderClosed = errors.New("render context is closed")

// CaptureConfig describes how the microphone should be captured.
type CaptureConfig struct {
	SampleRate       int
	Channels         int
	FramesPerBuffer  int
	EchoCancellation bool
	NoiseSuppression bool
}

// RenderConfig describes the playback stream for incremental PCM chunks.
type RenderConfig struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// CaptureDevice is a live microphone stream delivering PCM16 frames.
// Frames closes once the device stops.
type CaptureDevice interface {
	Frames() <-chan []int16
	Stop() error
}

// RenderContext decodes and plays audio buffers, owning the output-device
// resources. PlayPCM and PlayClip block until the buffer finished rendering.
type RenderContext interface {
	PlayPCM(samples []int16) error
	PlayClip(clip []byte) error
	Close() error
}

// AudioPlatform abstracts the host audio primitives behind one contract.
type AudioPlatform interface {
	Supported() error
	OpenCaptureDevice(ctx context.Context, cfg CaptureConfig) (CaptureDevice, error)
	OpenRenderContext(cfg RenderConfig) (RenderContext, error)
}

// VoiceChannel is an open duplex connection to the tutoring service.
// Inbound closes when the channel ends; Wait then reports the terminal error.
type VoiceChannel interface {
	Send(payload []byte) error
	Inbound() <-chan []byte
	Wait() error
	Close() error
}

// ChannelProvider dials voice channels.
type ChannelProvider interface {
	Open(ctx context.Context, session domain.SessionConfig) (VoiceChannel, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	ConnectionStateChanged(state domain.ConnectionState, reason domain.StateReason)
	TutorMessage(text string)
	UserTranscript(text string)
	ResponseText(text string, isError bool)
	ListeningChanged(listening bool)
	SpeakingChanged(speaking bool)
	VoiceError(code domain.ErrorCode, detail string)
}
