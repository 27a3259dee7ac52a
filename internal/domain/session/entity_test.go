package session_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangshi/genealogy-api/internal/domain/session"
)

func TestNew(t *testing.T) {
	t.Parallel()

	s := session.New()

	assert.True(t, session.IsValidID(s.ID))
	assert.Empty(t, s.Messages)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, s.CreatedAt, s.LastActiveAt)
}

func TestIsValidID(t *testing.T) {
	t.Parallel()

	assert.True(t, session.IsValidID("6f1c2a40-9d3e-4b7f-8a1c-0123456789ab"))

	for _, id := range []string{
		"",
		"not-a-uuid",
		"6F1C2A40-9D3E-4B7F-8A1C-0123456789AB", // uppercase rejected
		"6f1c2a40-9d3e-4b7f-8a1c-0123456789a",  // too short
		"6f1c2a409d3e4b7f8a1c0123456789ab",     // no dashes
	} {
		assert.False(t, session.IsValidID(id), "id %q", id)
	}
}

func TestSession_AppendExchange(t *testing.T) {
	t.Parallel()

	s := session.New()
	before := s.LastActiveAt

	s.AppendExchange("who were the Huang ancestors", "the lineage traces back to...")

	require.Len(t, s.Messages, 2)
	assert.Equal(t, "user", s.Messages[0].Role)
	assert.Equal(t, "assistant", s.Messages[1].Role)
	assert.False(t, s.LastActiveAt.Before(before))
}

func TestSession_TrimForIncoming_SizeTruncation(t *testing.T) {
	t.Parallel()

	s := session.New()
	// 30 messages of ~2000 chars each blows well past the content cap.
	big := strings.Repeat("x", 2000)
	for i := 0; i < 15; i++ {
		s.AppendExchange(big, big)
	}
	require.Len(t, s.Messages, 30)

	trimmed := s.TrimForIncoming(100)

	assert.True(t, trimmed)
	assert.Len(t, s.Messages, session.TruncateKeep)
	// The newest messages survive.
	assert.Equal(t, "assistant", s.Messages[len(s.Messages)-1].Role)
}

func TestSession_TrimForIncoming_MessageCap(t *testing.T) {
	t.Parallel()

	s := session.New()
	for i := 0; i < 25; i++ {
		s.AppendExchange("q", "a")
	}
	require.Len(t, s.Messages, 50)

	trimmed := s.TrimForIncoming(1)

	assert.True(t, trimmed)
	assert.Len(t, s.Messages, session.MaxMessages)
}

func TestSession_TrimForIncoming_NoopUnderLimits(t *testing.T) {
	t.Parallel()

	s := session.New()
	s.AppendExchange("short question", "short answer")

	assert.False(t, s.TrimForIncoming(100))
	assert.Len(t, s.Messages, 2)
}

func TestSession_HistoryPrompt(t *testing.T) {
	t.Parallel()

	s := session.New()
	assert.Equal(t, "hello", s.HistoryPrompt("hello"))

	s.AppendExchange("first question", "first answer")
	prompt := s.HistoryPrompt("second question")

	assert.Contains(t, prompt, "Conversation history:")
	assert.Contains(t, prompt, "User: first question")
	assert.Contains(t, prompt, "Assistant: first answer")
	assert.True(t, strings.HasSuffix(prompt, "Current question: second question"))
}

func TestSession_ContentSize(t *testing.T) {
	t.Parallel()

	s := session.New()
	assert.Zero(t, s.ContentSize())

	s.AppendExchange("abc", "defg")
	assert.Equal(t, 7, s.ContentSize())
}
