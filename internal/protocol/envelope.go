// Package protocol implements the JSON message envelope and the PCM16 audio
// codec used on the voice channel.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types carried on the voice channel.
const (
	TypeConnectionEstablished = "connection_established"
	TypeUserTranscript        = "user_transcript"
	TypeAIResponseText        = "ai_response_text"
	TypeTTSAudio              = "tts_audio"
	TypeAudioDelta            = "response.audio.delta"
	TypeAudioDone             = "response.audio.done"
	TypeError                 = "error"
	TypeAppendAudio           = "input_audio_buffer.append"
)

// ServerEvent is a decoded inbound message.
type ServerEvent interface {
	EventType() string
}

// ConnectionEstablished is the greeting sent once the session is ready.
type ConnectionEstablished struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (ConnectionEstablished) EventType() string { return TypeConnectionEstablished }

// UserTranscript carries the recognized text of the user's speech.
type UserTranscript struct {
	Transcript string `json:"transcript"`
}

func (UserTranscript) EventType() string { return TypeUserTranscript }

// AIResponseText carries the tutor's textual reply.
type AIResponseText struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

func (AIResponseText) EventType() string { return TypeAIResponseText }

// TTSAudio carries one complete synthesized clip, base64 encoded.
type TTSAudio struct {
	Audio  string `json:"audio"`
	Format string `json:"format,omitempty"`
}

func (TTSAudio) EventType() string { return TypeTTSAudio }

// AudioDelta carries one incremental chunk of base64 PCM16 audio.
type AudioDelta struct {
	Delta string `json:"delta"`
}

func (AudioDelta) EventType() string { return TypeAudioDelta }

// AudioDone marks the end of an incremental audio response.
type AudioDone struct{}

func (AudioDone) EventType() string { return TypeAudioDone }

// ErrorEvent is a server-reported failure.
type ErrorEvent struct {
	Message string `json:"error"`
}

func (ErrorEvent) EventType() string { return TypeError }

// UnknownEvent preserves messages whose type has no local handling.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) EventType() string { return e.Type }

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound channel payload into its typed event.
func Decode(payload []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	switch env.Type {
	case TypeConnectionEstablished:
		var ev ConnectionEstablished
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", env.Type, err)
		}
		return ev, nil
	case TypeUserTranscript:
		var ev UserTranscript
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", env.Type, err)
		}
		return ev, nil
	case TypeAIResponseText:
		var ev AIResponseText
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", env.Type, err)
		}
		return ev, nil
	case TypeTTSAudio:
		var ev TTSAudio
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", env.Type, err)
		}
		return ev, nil
	case TypeAudioDelta:
		var ev AudioDelta
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", env.Type, err)
		}
		return ev, nil
	case TypeAudioDone:
		return AudioDone{}, nil
	case TypeError:
		var ev ErrorEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", env.Type, err)
		}
		return ev, nil
	default:
		return UnknownEvent{Type: env.Type, Raw: append(json.RawMessage(nil), payload...)}, nil
	}
}

type appendAudio struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// NewAppendAudio builds the outbound frame carrying encoded microphone audio.
func NewAppendAudio(encoded string) ([]byte, error) {
	return json.Marshal(appendAudio{Type: TypeAppendAudio, Audio: encoded})
}
