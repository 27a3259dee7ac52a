package services

import (
	"context"
	"sync"

	"github.com/huangshi/genealogy-api/internal/domain/model"
	"github.com/huangshi/genealogy-api/internal/infrastructure/upstream"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// Completer is the upstream surface the chat service needs.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, prompt, modelID string, temperature float64) (*upstream.Result, error)
}

// DefaultTemperature is used when a request does not set one.
const DefaultTemperature = 0.7

// ChatResult is the outcome of a single-shot chat request.
type ChatResult struct {
	Content     string
	Model       string
	TotalTokens int64
}

// ConverseResult is the outcome of a session-aware conversation turn.
type ConverseResult struct {
	Content      string
	Model        string
	SessionID    string
	MessageCount int
	TotalTokens  int64
}

// ChatService runs prompts against the upstream model, with or without
// conversation memory.
type ChatService struct {
	completer Completer
	sessions  *SessionService
	log       logger.Logger

	mu           sync.RWMutex
	currentModel string
}

// NewChatService creates the chat service. defaultModel overrides the
// catalog default when non-empty.
func NewChatService(completer Completer, sessions *SessionService, defaultModel string, log logger.Logger) *ChatService {
	if defaultModel == "" || !model.IsSupported(defaultModel) {
		defaultModel = model.DefaultID()
	}
	return &ChatService{
		completer:    completer,
		sessions:     sessions,
		currentModel: defaultModel,
		log:          log.With(logger.Component("chat")),
	}
}

// CurrentModel returns the model used when requests do not name one.
func (s *ChatService) CurrentModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentModel
}

// SwitchModel changes the default model. The id must already be validated
// against the catalog.
func (s *ChatService) SwitchModel(id string) {
	s.mu.Lock()
	s.currentModel = id
	s.mu.Unlock()

	s.log.Info("default model switched", logger.String("model", id))
}

// Configured reports whether the upstream client has credentials.
func (s *ChatService) Configured() bool {
	return s.completer.Configured()
}

func (s *ChatService) resolveModel(id string) string {
	if id != "" {
		return id
	}
	return s.CurrentModel()
}

// Chat runs a stateless prompt.
func (s *ChatService) Chat(ctx context.Context, prompt, modelID string, temperature float64) (*ChatResult, error) {
	modelID = s.resolveModel(modelID)

	res, err := s.completer.Complete(ctx, prompt, modelID, temperature)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Content:     res.Content,
		Model:       modelID,
		TotalTokens: res.TotalTokens,
	}, nil
}

// Converse runs one turn of a session-backed conversation: history is
// trimmed to fit, flattened into the prompt, and the exchange is stored
// only after the upstream call succeeds.
func (s *ChatService) Converse(ctx context.Context, sessionID, message, modelID string, temperature float64) (*ConverseResult, error) {
	modelID = s.resolveModel(modelID)

	sess, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.TrimForIncoming(len([]rune(message))) {
		s.log.Info("trimmed conversation history",
			logger.SessionID(sess.ID),
			logger.Int("kept_messages", len(sess.Messages)))
	}

	res, err := s.completer.Complete(ctx, sess.HistoryPrompt(message), modelID, temperature)
	if err != nil {
		return nil, err
	}

	sess.AppendExchange(message, res.Content)
	if err := s.sessions.Save(ctx, sess); err != nil {
		// Still return the reply; the next turn loses this exchange.
		s.log.Error("failed to persist session", logger.SessionID(sess.ID), logger.Error(err))
	}

	return &ConverseResult{
		Content:      res.Content,
		Model:        modelID,
		SessionID:    sess.ID,
		MessageCount: len(sess.Messages),
		TotalTokens:  res.TotalTokens,
	}, nil
}
