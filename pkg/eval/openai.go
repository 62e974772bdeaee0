package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	openAITemperature    = 0.2
)

// OpenAI evaluates candidates with any OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(baseURL, apiKey, model string) (*OpenAI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (o *OpenAI) Evaluate(ctx context.Context, in *Input) (*Verdict, error) {
	if in == nil || in.Metrics == nil {
		return nil, errors.New("input with metrics is required")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(in)},
		},
		Temperature: openAITemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion for %s: %w", in.Username, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned for %s", in.Username)
	}

	v, err := ParseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("verdict for %s: %w", in.Username, err)
	}
	v.Model = o.model

	return v, nil
}
