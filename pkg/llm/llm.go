// Package llm abstracts the structured-extraction calls the intent
// processor issues, fronting Anthropic's API as the primary provider and
// degrading to a local pattern fallback on timeout or parse failure
// (spec.md §4.5 step 5, §7 LLMError).
package llm

import (
	"context"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/weldtech/sparky/internal/errors"
	"github.com/weldtech/sparky/internal/resilience"
)

// Client issues a single structured-extraction completion: a system
// prompt describing the schema, a user prompt carrying the query, and the
// raw text response to be parsed by the caller.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMError marks a failure as never-retried-inside-a-stage per spec.md §7;
// the intent processor catches it and runs its regex fallback instead.
type LLMError struct {
	Cause error
}

func (e *LLMError) Error() string { return "llm error: " + e.Cause.Error() }
func (e *LLMError) Unwrap() error { return e.Cause }

type anthropicClient struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	breaker *resilience.Breaker
}

// NewAnthropicClient builds the primary LLM client.
func NewAnthropicClient(apiKey, model string, timeout time.Duration) Client {
	return &anthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
		breaker: resilience.NewCircuitBreaker("llm", 0.5, 20*time.Second),
	}
}

func (c *anthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var text string
	err := c.breaker.CallContext(ctx, func(ctx context.Context) error {
		msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: 1024,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			return err
		}
		for _, block := range msg.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		return nil
	})
	if err != nil {
		return "", &LLMError{Cause: errors.Wrapf(err, "anthropic completion")}
	}
	return text, nil
}
