package domain

import "fmt"

// ConnectionState models the voice channel lifecycle.
type ConnectionState string

const (
	StateIdle       ConnectionState = "idle"
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClosing    ConnectionState = "closing"
	StateClosed     ConnectionState = "closed"
)

// StateReason provides a structured reason for state transitions.
type StateReason string

const (
	ReasonReady               StateReason = "ready"
	ReasonConnectRequested    StateReason = "connect_requested"
	ReasonChannelOpen         StateReason = "channel_open"
	ReasonDisconnectRequested StateReason = "disconnect_requested"
	ReasonDisconnected        StateReason = "disconnected"
	ReasonChannelClosed       StateReason = "channel_closed"
	ReasonChannelFailed       StateReason = "channel_failed"
)

// ErrorCode identifies typed failures surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodeConfig     ErrorCode = "config"
	ErrorCodeCapability ErrorCode = "capability"
	ErrorCodePermission ErrorCode = "permission"
	ErrorCodeProtocol   ErrorCode = "protocol"
	ErrorCodeChannel    ErrorCode = "channel"
	ErrorCodeServer     ErrorCode = "server"
	ErrorCodeAudio      ErrorCode = "audio"
)

// Error is a typed failure with a user-presentable message.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ChannelClosure reports a duplex channel close with a non-normal status code.
type ChannelClosure struct {
	Code   int
	Reason string
}

func (c *ChannelClosure) Error() string {
	if c.Reason == "" {
		return fmt.Sprintf("channel closed abnormally (code %d)", c.Code)
	}
	return fmt.Sprintf("channel closed abnormally (code %d): %s", c.Code, c.Reason)
}

// SessionConfig identifies one voice conversation attempt and the study
// context it is bound to. Created once per connect call.
type SessionConfig struct {
	SessionID             string         `json:"sessionId"`
	ExamID                string         `json:"examId"`
	SubjectID             string         `json:"subjectId"`
	ChapterID             string         `json:"chapterId"`
	ExamName              string         `json:"examName"`
	SubjectName           string         `json:"subjectName"`
	ChapterName           string         `json:"chapterName"`
	AccessibilitySettings map[string]any `json:"accessibilitySettings,omitempty"`
}

// VoiceStatus summarizes the current client state for the UI.
type VoiceStatus struct {
	State      ConnectionState `json:"state"`
	Listening  bool            `json:"listening"`
	Speaking   bool            `json:"speaking"`
	Transcript string          `json:"transcript,omitempty"`
	Response   string          `json:"response,omitempty"`
	Error      *Error          `json:"error,omitempty"`
}
