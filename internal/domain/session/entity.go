package session

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Limits applied to a conversation before a new exchange is sent upstream.
const (
	// MaxMessages caps how many messages a session may hold.
	MaxMessages = 40
	// MaxContentChars caps the total character count across all stored
	// message contents.
	MaxContentChars = 50000
	// TruncateKeep is how many of the most recent messages survive a
	// size-triggered truncation.
	TruncateKeep = 20
)

var sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Session is a multi-turn conversation identified by a UUID.
type Session struct {
	ID           string    `json:"id"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// New creates an empty session with a fresh UUID.
func New() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		Messages:     []Message{},
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// IsValidID reports whether id is a well-formed lowercase UUID.
func IsValidID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Touch bumps the activity timestamp.
func (s *Session) Touch() {
	s.LastActiveAt = time.Now().UTC()
}

// ContentSize returns the total character count of all stored messages.
func (s *Session) ContentSize() int {
	size := 0
	for _, m := range s.Messages {
		size += len([]rune(m.Content))
	}
	return size
}

// TrimForIncoming makes room for an incoming message of the given size.
// If the stored content plus the incoming message would exceed
// MaxContentChars, only the TruncateKeep most recent messages are kept.
// Independently, the message count is capped at MaxMessages by dropping
// the oldest entries. It returns true if anything was dropped.
func (s *Session) TrimForIncoming(incomingChars int) bool {
	trimmed := false

	if s.ContentSize()+incomingChars > MaxContentChars && len(s.Messages) > TruncateKeep {
		s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-TruncateKeep:]...)
		trimmed = true
	}

	if len(s.Messages) > MaxMessages {
		s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-MaxMessages:]...)
		trimmed = true
	}

	return trimmed
}

// AppendExchange records a completed user/assistant turn and bumps activity.
func (s *Session) AppendExchange(userContent, assistantContent string) {
	s.Messages = append(s.Messages,
		Message{Role: "user", Content: userContent},
		Message{Role: "assistant", Content: assistantContent},
	)
	s.Touch()
}

// HistoryPrompt flattens the stored conversation plus the current question
// into a single prompt for the upstream model. An empty history yields the
// question unchanged.
func (s *Session) HistoryPrompt(question string) string {
	if len(s.Messages) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Conversation history:\n")
	for _, m := range s.Messages {
		label := "User"
		if m.Role == "assistant" {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}
	b.WriteString("\nCurrent question: ")
	b.WriteString(question)
	return b.String()
}
