package usecase

import (
	"strings"
	"sync"
)

// conversationState retains the latest transcript and tutor response so the
// UI can rehydrate after a reload.
type conversationState struct {
	mu         sync.Mutex
	transcript string
	response   string
}

func (s *conversationState) SetTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.transcript = text
	s.mu.Unlock()
}

func (s *conversationState) SetResponse(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.response = text
	s.mu.Unlock()
}

func (s *conversationState) Snapshot() (transcript, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript, s.response
}

func (s *conversationState) Reset() {
	s.mu.Lock()
	s.transcript = ""
	s.response = ""
	s.mu.Unlock()
}
