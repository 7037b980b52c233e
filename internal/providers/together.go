package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const togetherDefaultModel = "flux-schnell"

var togetherModels = map[string]string{
	"flux-schnell": "black-forest-labs/FLUX.1-schnell-Free",
	"flux-dev":     "black-forest-labs/FLUX.1-dev",
}

var togetherCosts = map[string]float64{
	"flux-schnell": 0.003,
	"flux-dev":     0.018,
}

// Together integrates the Together AI images endpoint. A whole batch comes
// back from a single call.
type Together struct {
	keys    KeySource
	client  *http.Client
	baseURL string
}

func NewTogether(keys KeySource, client *http.Client) *Together {
	return &Together{keys: keys, client: client, baseURL: "https://api.together.xyz"}
}

func (t *Together) Info() Info {
	return Info{
		ID:           ProviderTogether,
		Name:         "Together AI",
		Models:       []string{"flux-schnell", "flux-dev"},
		Capabilities: []Capability{CapabilityGenerate, CapabilityVariants},
		CostPerImage: 0.003,
	}
}

type togetherResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *Together) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := t.keys.Key(ctx, ProviderTogether)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &CredentialError{Provider: ProviderTogether}
	}

	model := p.Model
	if _, ok := togetherModels[model]; !ok {
		model = togetherDefaultModel
	}
	width, height := dimensionsFor(p.AspectRatio)
	count := p.Count
	if count <= 0 {
		count = 1
	}

	payload := map[string]any{
		"model":           togetherModels[model],
		"prompt":          p.Prompt,
		"n":               count,
		"width":           width,
		"height":          height,
		"response_format": "b64_json",
	}
	if p.Advanced.Seed != nil {
		payload["seed"] = *p.Advanced.Seed
	}
	if p.Advanced.Steps != nil {
		payload["steps"] = *p.Advanced.Steps
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("together: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("together: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, vendorErrf(ProviderTogether, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vendorErrf(ProviderTogether, "read response: %v", err)
	}

	var decoded togetherResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, vendorErrf(ProviderTogether, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return nil, &VendorError{Provider: ProviderTogether, Message: decoded.Error.Message}
		}
		return nil, vendorErrf(ProviderTogether, "status %d", resp.StatusCode)
	}

	var images []Image
	for _, item := range decoded.Data {
		if item.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, vendorErrf(ProviderTogether, "decode image data: %v", err)
		}
		images = append(images, Image{Data: data, MIME: "image/png"})
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}

	cost, ok := togetherCosts[model]
	if !ok {
		cost = 0.003
	}
	return &Result{Images: images, Cost: cost * float64(len(images))}, nil
}

var _ Adapter = (*Together)(nil)
