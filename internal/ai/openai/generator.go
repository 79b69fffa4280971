package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/songzhibin97/deepdive/internal/ai"
)

const (
	defaultModel   = "openai/gpt-3.5-turbo"
	defaultTimeout = 30 * time.Second

	systemPersona = "You are a crypto analyst AI that provides concise, objective analysis."
)

// Options configures an OpenAI compatible endpoint such as OpenRouter.
type Options struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Referer     string
	Title       string
}

// OpenAIGenerator implements ai.Generator over the chat completions API
type OpenAIGenerator struct {
	client      *openai.Client
	configured  bool
	model       string
	temperature float32
}

// NewOpenAIGenerator creates a generator. Without an API key every call fails with ai.ErrNotConfigured.
func NewOpenAIGenerator(opts Options) *OpenAIGenerator {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	config := openai.DefaultConfig(opts.APIKey)
	if opts.Endpoint != "" {
		config.BaseURL = strings.TrimRight(opts.Endpoint, "/")
	}
	config.HTTPClient = &http.Client{
		Timeout: opts.Timeout,
		Transport: &headerTransport{
			base: &http.Transport{Proxy: http.ProxyFromEnvironment},
			headers: map[string]string{
				"HTTP-Referer": opts.Referer,
				"X-Title":      opts.Title,
			},
		},
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(config),
		configured:  opts.APIKey != "",
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

// Generate implements ai.Generator
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !g.configured {
		return "", ai.ErrNotConfigured
	}

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPersona,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   maxTokens,
			Temperature: g.temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyResponse
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// headerTransport adds the attribution headers OpenRouter expects.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
