package prompt

import (
	"context"
	"errors"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoKey signals that an enhancer has no credential configured and the
// next one in the chain should be tried.
var ErrNoKey = errors.New("prompt: no api key configured")

// OpenAIEnhancer rewrites prompts through the chat completions API. The
// underlying client is rebuilt whenever the effective key changes, so a key
// updated through settings takes effect without a restart.
type OpenAIEnhancer struct {
	keys  KeySource
	model string

	mu        sync.Mutex
	clientKey string
	client    *openai.Client
	newClient func(key string) *openai.Client
}

// NewOpenAIEnhancer builds an enhancer using the given chat model, or
// gpt-4o-mini when model is empty.
func NewOpenAIEnhancer(keys KeySource, model string) *OpenAIEnhancer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIEnhancer{
		keys:      keys,
		model:     model,
		newClient: openai.NewClient,
	}
}

func (e *OpenAIEnhancer) clientFor(ctx context.Context) (*openai.Client, error) {
	key, err := e.keys.Key(ctx, "openai")
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrNoKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil || e.clientKey != key {
		e.client = e.newClient(key)
		e.clientKey = key
	}
	return e.client, nil
}

func (e *OpenAIEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	client, err := e.clientFor(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("prompt: empty completion")
	}
	enhanced := strings.TrimSpace(resp.Choices[0].Message.Content)
	if enhanced == "" {
		return "", errors.New("prompt: empty completion")
	}
	return enhanced, nil
}

var _ Enhancer = (*OpenAIEnhancer)(nil)
