// Package prompt rewrites short user prompts into richer image-generation
// prompts. Enhancers are tried in preference order: OpenAI chat completions,
// Gemini, then a deterministic local fallback.
package prompt

import "context"

// Enhancer rewrites a raw prompt into a more detailed one.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string) (string, error)
}

const systemInstruction = "You are an expert prompt engineer for AI image generation. " +
	"Rewrite the user's prompt into a single detailed image-generation prompt. " +
	"Add concrete visual details: subject, style, lighting, composition, mood. " +
	"Reply with the rewritten prompt only, no commentary."

// KeySource resolves the effective API key for a provider at call time.
type KeySource interface {
	Key(ctx context.Context, provider string) (string, error)
}

// Chain tries each enhancer in order and returns the first success. An
// enhancer with no configured key is skipped rather than treated as a
// failure. The final enhancer should be infallible.
type Chain struct {
	enhancers []Enhancer
}

func NewChain(enhancers ...Enhancer) *Chain {
	return &Chain{enhancers: enhancers}
}

func (c *Chain) Enhance(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, e := range c.enhancers {
		enhanced, err := e.Enhance(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}
		return enhanced, nil
	}
	return "", lastErr
}

var _ Enhancer = (*Chain)(nil)
