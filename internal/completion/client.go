// Package completion wraps a text generator so that every successful call
// is billed to the usage log before its text is handed back.
package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/aceteam-ai/skillcraft/internal/watsonx"
	"go.uber.org/zap"
)

// DefaultMaxTokens is used when a caller passes a non-positive budget.
const DefaultMaxTokens = 512

// Generator is the hosted model. *watsonx.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxNewTokens int) (*watsonx.Generation, error)
}

// Completer is what prompt handlers depend on.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Client is the billed completion path.
type Client struct {
	gen    Generator
	log    usage.Appender
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient returns a Client generating with gen and billing to log.
func NewClient(gen Generator, log usage.Appender, opts ...Option) *Client {
	c := &Client{
		gen:    gen,
		log:    log,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete generates text for prompt. A generator failure is returned as-is
// and nothing is logged. On success exactly one usage record is appended
// before the text is returned; if that append fails the text is dropped.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	gen, err := c.gen.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return "", err
	}

	rec := usage.NewRecord(c.now(), gen.InputTokens, gen.GeneratedTokens)
	if err := c.log.Append(rec); err != nil {
		return "", fmt.Errorf("log usage: %w", err)
	}

	c.logger.Debug("completion billed",
		zap.Int("input_tokens", gen.InputTokens),
		zap.Int("generated_tokens", gen.GeneratedTokens),
		zap.Float64("ru", rec.ResourceUnits),
		zap.Int("max_tokens", maxTokens))

	return gen.Text, nil
}
