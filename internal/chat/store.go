// Package chat holds the conversation with the listing assistant.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/evcraddock/house-market/internal/apperr"
)

// Sender identifies who wrote a message.
type Sender string

const (
	FromUser Sender = "user"
	FromBot  Sender = "bot"
)

type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Assistant answers a single message.
type Assistant interface {
	Ask(ctx context.Context, message string) (string, error)
}

// Store keeps the conversation in the order messages were sent.
type Store struct {
	assistant Assistant

	mu       sync.Mutex
	messages []Message
	inflight int
	errMsg   string
}

// NewStore creates an empty conversation backed by a.
func NewStore(a Assistant) *Store {
	return &Store{assistant: a}
}

// Send appends text to the conversation, asks the assistant, and appends its
// reply. The user's message stays in the conversation if the request fails.
func (s *Store) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("message is empty")
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{Sender: FromUser, Text: text})
	s.inflight++
	s.errMsg = ""
	s.mu.Unlock()

	reply, err := s.assistant.Ask(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.errMsg = apperr.Message(err)
		if s.errMsg == "" {
			s.errMsg = "Failed to send message"
		}
		return "", err
	}
	s.messages = append(s.messages, Message{Sender: FromBot, Text: reply})
	return reply, nil
}

// Messages returns a copy of the conversation.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Clear empties the conversation.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// Loading reports whether a message is awaiting its reply.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the message of the last failed send, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// ClearError dismisses the current error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}
