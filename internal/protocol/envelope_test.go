package protocol

import (
	"testing"
)

func TestDecodeTypedEvents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		check   func(t *testing.T, ev ServerEvent)
	}{
		{
			name:    "connection established",
			payload: `{"type":"connection_established","message":"Voice session ready","timestamp":"2026-08-24T10:00:00Z"}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(ConnectionEstablished)
				if !ok {
					t.Fatalf("expected ConnectionEstablished, got %T", ev)
				}
				if got.Message != "Voice session ready" {
					t.Fatalf("unexpected message %q", got.Message)
				}
				if got.Timestamp != "2026-08-24T10:00:00Z" {
					t.Fatalf("unexpected timestamp %q", got.Timestamp)
				}
			},
		},
		{
			name:    "user transcript",
			payload: `{"type":"user_transcript","transcript":"what is photosynthesis"}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(UserTranscript)
				if !ok {
					t.Fatalf("expected UserTranscript, got %T", ev)
				}
				if got.Transcript != "what is photosynthesis" {
					t.Fatalf("unexpected transcript %q", got.Transcript)
				}
			},
		},
		{
			name:    "ai response text",
			payload: `{"type":"ai_response_text","text":"Photosynthesis converts light into energy.","is_error":false}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(AIResponseText)
				if !ok {
					t.Fatalf("expected AIResponseText, got %T", ev)
				}
				if got.Text != "Photosynthesis converts light into energy." {
					t.Fatalf("unexpected text %q", got.Text)
				}
				if got.IsError {
					t.Fatalf("expected is_error false")
				}
			},
		},
		{
			name:    "ai response error flag",
			payload: `{"type":"ai_response_text","text":"Something went wrong.","is_error":true}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(AIResponseText)
				if !ok {
					t.Fatalf("expected AIResponseText, got %T", ev)
				}
				if !got.IsError {
					t.Fatalf("expected is_error true")
				}
			},
		},
		{
			name:    "tts audio clip",
			payload: `{"type":"tts_audio","audio":"U09NRU1QMw==","format":"mp3"}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(TTSAudio)
				if !ok {
					t.Fatalf("expected TTSAudio, got %T", ev)
				}
				if got.Audio != "U09NRU1QMw==" {
					t.Fatalf("unexpected audio %q", got.Audio)
				}
				if got.Format != "mp3" {
					t.Fatalf("unexpected format %q", got.Format)
				}
			},
		},
		{
			name:    "audio delta",
			payload: `{"type":"response.audio.delta","delta":"AAABAA=="}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(AudioDelta)
				if !ok {
					t.Fatalf("expected AudioDelta, got %T", ev)
				}
				if got.Delta != "AAABAA==" {
					t.Fatalf("unexpected delta %q", got.Delta)
				}
			},
		},
		{
			name:    "audio done",
			payload: `{"type":"response.audio.done"}`,
			check: func(t *testing.T, ev ServerEvent) {
				if _, ok := ev.(AudioDone); !ok {
					t.Fatalf("expected AudioDone, got %T", ev)
				}
			},
		},
		{
			name:    "server error",
			payload: `{"type":"error","error":"session expired"}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(ErrorEvent)
				if !ok {
					t.Fatalf("expected ErrorEvent, got %T", ev)
				}
				if got.Message != "session expired" {
					t.Fatalf("unexpected error message %q", got.Message)
				}
			},
		},
		{
			name:    "unknown type is preserved",
			payload: `{"type":"response.created","response":{"id":"resp_1"}}`,
			check: func(t *testing.T, ev ServerEvent) {
				got, ok := ev.(UnknownEvent)
				if !ok {
					t.Fatalf("expected UnknownEvent, got %T", ev)
				}
				if got.Type != "response.created" {
					t.Fatalf("unexpected type %q", got.Type)
				}
				if len(got.Raw) == 0 {
					t.Fatalf("expected raw payload to be preserved")
				}
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev, err := Decode([]byte(tc.payload))
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if ev.EventType() == "" {
				t.Fatalf("empty event type")
			}
			tc.check(t, ev)
		})
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `this is not json`},
		{name: "truncated object", payload: `{"type":"user_transcript"`},
		{name: "wrong field type", payload: `{"type":"ai_response_text","text":42}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode([]byte(tc.payload)); err == nil {
				t.Fatalf("expected decode error for %q", tc.payload)
			}
		})
	}
}

func TestNewAppendAudio(t *testing.T) {
	t.Parallel()

	payload, err := NewAppendAudio("QUJD")
	if err != nil {
		t.Fatalf("NewAppendAudio() error: %v", err)
	}
	want := `{"type":"input_audio_buffer.append","audio":"QUJD"}`
	if string(payload) != want {
		t.Fatalf("unexpected payload:\n got %s\nwant %s", payload, want)
	}
}
