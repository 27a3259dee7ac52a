package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/huangshi/genealogy-api/config"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// Result is a completed upstream exchange.
type Result struct {
	Content     string
	TotalTokens int64
}

// QwenClient talks to the DashScope OpenAI-compatible chat endpoint.
type QwenClient struct {
	client       openai.Client
	configured   bool
	systemPrompt string
	timeout      time.Duration
	log          logger.Logger
}

// NewQwenClient creates the upstream client. A missing API key is not
// fatal at startup, the client just reports itself unconfigured and
// requests fail with a clear error.
func NewQwenClient(cfg config.UpstreamConfig, log logger.Logger) *QwenClient {
	c := &QwenClient{
		configured:   cfg.APIKey != "",
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
		log:          log.With(logger.Component("upstream")),
	}

	if c.configured {
		c.client = openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
		)
	}

	return c
}

// Configured reports whether an API key is available.
func (c *QwenClient) Configured() bool {
	return c.configured
}

// Complete sends one prompt to the model and returns the assistant reply.
func (c *QwenClient) Complete(ctx context.Context, prompt, model string, temperature float64) (*Result, error) {
	if !c.configured {
		return nil, apperrors.ErrUpstreamNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("upstream call timed out",
				logger.String("model", model),
				logger.Duration("after", time.Since(start)))
			return nil, apperrors.ErrUpstreamTimeout
		}
		c.log.Error("upstream call failed",
			logger.String("model", model),
			logger.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", apperrors.ErrUpstream)
	}

	c.log.Info("upstream call completed",
		logger.String("model", model),
		logger.Int64("total_tokens", resp.Usage.TotalTokens),
		logger.Latency(time.Since(start)))

	return &Result{
		Content:     resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
