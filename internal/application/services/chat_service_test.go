package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangshi/genealogy-api/internal/application/services"
	"github.com/huangshi/genealogy-api/internal/domain/model"
	"github.com/huangshi/genealogy-api/internal/infrastructure/upstream"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// stubCompleter records the last prompt and returns a canned reply.
type stubCompleter struct {
	lastPrompt string
	lastModel  string
	reply      string
	err        error
}

func (s *stubCompleter) Configured() bool { return true }

func (s *stubCompleter) Complete(_ context.Context, prompt, modelID string, _ float64) (*upstream.Result, error) {
	s.lastPrompt = prompt
	s.lastModel = modelID
	if s.err != nil {
		return nil, s.err
	}
	return &upstream.Result{Content: s.reply, TotalTokens: 42}, nil
}

func newChatService(t *testing.T, completer services.Completer) *services.ChatService {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return services.NewChatService(completer, newSessionService(t, nil), "", log)
}

func TestChatService_Chat(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{reply: "the Huang surname traces to..."}
	svc := newChatService(t, stub)

	res, err := svc.Chat(context.Background(), "origins of the Huang surname", "", 0.7)
	require.NoError(t, err)

	assert.Equal(t, stub.reply, res.Content)
	assert.Equal(t, model.DefaultID(), res.Model)
	assert.Equal(t, int64(42), res.TotalTokens)
	assert.Equal(t, "origins of the Huang surname", stub.lastPrompt)
}

func TestChatService_Chat_ExplicitModel(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{reply: "ok"}
	svc := newChatService(t, stub)

	_, err := svc.Chat(context.Background(), "hi", "glm-5", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "glm-5", stub.lastModel)
}

func TestChatService_SwitchModel(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{reply: "ok"}
	svc := newChatService(t, stub)

	svc.SwitchModel("kimi-k2.5")
	assert.Equal(t, "kimi-k2.5", svc.CurrentModel())

	_, err := svc.Chat(context.Background(), "hi", "", 0.7)
	require.NoError(t, err)
	assert.Equal(t, "kimi-k2.5", stub.lastModel)
}

func TestChatService_Converse_NewSession(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{reply: "first answer"}
	svc := newChatService(t, stub)

	res, err := svc.Converse(context.Background(), "", "first question", "", 0.7)
	require.NoError(t, err)

	assert.Equal(t, "first answer", res.Content)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, 2, res.MessageCount)
	// First turn has no history to flatten.
	assert.Equal(t, "first question", stub.lastPrompt)
}

func TestChatService_Converse_CarriesHistory(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{reply: "first answer"}
	svc := newChatService(t, stub)
	ctx := context.Background()

	first, err := svc.Converse(ctx, "", "first question", "", 0.7)
	require.NoError(t, err)

	stub.reply = "second answer"
	second, err := svc.Converse(ctx, first.SessionID, "second question", "", 0.7)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 4, second.MessageCount)
	assert.Contains(t, stub.lastPrompt, "Conversation history:")
	assert.Contains(t, stub.lastPrompt, "User: first question")
	assert.Contains(t, stub.lastPrompt, "Assistant: first answer")
	assert.Contains(t, stub.lastPrompt, "Current question: second question")
}

func TestChatService_Converse_UpstreamFailureKeepsHistoryClean(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{reply: "answer"}
	svc := newChatService(t, stub)
	ctx := context.Background()

	first, err := svc.Converse(ctx, "", "question", "", 0.7)
	require.NoError(t, err)

	stub.err = apperrors.ErrUpstreamTimeout
	_, err = svc.Converse(ctx, first.SessionID, "doomed question", "", 0.7)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamTimeout)

	// The failed turn must not be recorded.
	stub.err = nil
	stub.reply = "recovered"
	res, err := svc.Converse(ctx, first.SessionID, "third question", "", 0.7)
	require.NoError(t, err)
	assert.Equal(t, 4, res.MessageCount)
	assert.NotContains(t, stub.lastPrompt, "doomed question")
}
