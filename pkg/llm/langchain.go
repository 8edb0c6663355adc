package llm

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/weldtech/sparky/internal/errors"
	"github.com/weldtech/sparky/internal/resilience"
)

// langchainClient fronts any OpenAI-compatible endpoint (LocalAI, vLLM)
// through langchaingo, so deployments without Anthropic access still get
// structured extraction from the same Client interface.
type langchainClient struct {
	model   llms.Model
	timeout time.Duration
	breaker *resilience.Breaker
}

// NewLangchainClient builds the OpenAI-compatible fallback provider.
// endpoint is the server base URL; model is the served model name.
func NewLangchainClient(endpoint, apiKey, model string, timeout time.Duration) (Client, error) {
	opts := []openai.Option{openai.WithModel(model)}
	if endpoint != "" {
		opts = append(opts, openai.WithBaseURL(endpoint))
	}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "build langchain client")
	}
	return &langchainClient{
		model:   m,
		timeout: timeout,
		breaker: resilience.NewCircuitBreaker("llm-langchain", 0.5, 20*time.Second),
	}, nil
}

func (c *langchainClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var text string
	err := c.breaker.CallContext(ctx, func(ctx context.Context) error {
		resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
		}, llms.WithMaxTokens(1024), llms.WithTemperature(0))
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.FailedTo("generate content", nil)
		}
		text = resp.Choices[0].Content
		return nil
	})
	if err != nil {
		return "", &LLMError{Cause: errors.Wrapf(err, "langchain completion")}
	}
	return text, nil
}
