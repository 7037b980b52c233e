package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GeminiEnhancer rewrites prompts through the Gemini generateContent API.
type GeminiEnhancer struct {
	keys    KeySource
	client  *http.Client
	baseURL string
	model   string
}

func NewGeminiEnhancer(keys KeySource, client *http.Client) *GeminiEnhancer {
	if client == nil {
		client = http.DefaultClient
	}
	return &GeminiEnhancer{
		keys:    keys,
		client:  client,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		model:   "gemini-2.0-flash",
	}
}

type geminiEnhanceRequest struct {
	Contents          []geminiEnhanceContent `json:"contents"`
	SystemInstruction *geminiEnhanceContent  `json:"systemInstruction,omitempty"`
}

type geminiEnhanceContent struct {
	Parts []geminiEnhancePart `json:"parts"`
}

type geminiEnhancePart struct {
	Text string `json:"text"`
}

type geminiEnhanceResponse struct {
	Candidates []struct {
		Content geminiEnhanceContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *GeminiEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	key, err := e.keys.Key(ctx, "gemini")
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNoKey
	}

	payload := geminiEnhanceRequest{
		Contents: []geminiEnhanceContent{
			{Parts: []geminiEnhancePart{{Text: prompt}}},
		},
		SystemInstruction: &geminiEnhanceContent{
			Parts: []geminiEnhancePart{{Text: systemInstruction}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("prompt: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.baseURL, e.model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("prompt: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("prompt: gemini request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("prompt: read response: %w", err)
	}

	var decoded geminiEnhanceResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("prompt: gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		msg := decoded.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("prompt: gemini: %s", msg)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("prompt: empty completion")
	}
	enhanced := strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text)
	if enhanced == "" {
		return "", errors.New("prompt: empty completion")
	}
	return enhanced, nil
}

var _ Enhancer = (*GeminiEnhancer)(nil)
