package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const bflDefaultModel = "flux-schnell"

var bflModels = map[string]string{
	"flux-pro-1.1": "flux-pro-1.1",
	"flux-pro":     "flux-pro",
	"flux-dev":     "flux-dev",
	"flux-schnell": "flux-schnell",
}

var bflCosts = map[string]float64{
	"flux-pro-1.1": 0.06,
	"flux-pro":     0.055,
	"flux-dev":     0.025,
	"flux-schnell": 0.003,
}

// BFL integrates Black Forest Labs. It is the submit-then-poll adapter:
// a generation task is submitted, then the result endpoint is polled at a
// fixed interval up to a bounded attempt count.
type BFL struct {
	keys         KeySource
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
}

func NewBFL(keys KeySource, client *http.Client) *BFL {
	return &BFL{
		keys:         keys,
		client:       client,
		baseURL:      "https://api.bfl.ml",
		pollInterval: time.Second,
		maxPolls:     60,
	}
}

func (b *BFL) Info() Info {
	return Info{
		ID:           ProviderBFL,
		Name:         "Black Forest Labs",
		Models:       []string{"flux-pro-1.1", "flux-pro", "flux-dev", "flux-schnell"},
		Capabilities: []Capability{CapabilityGenerate, CapabilityVariants},
		CostPerImage: 0.025,
	}
}

type bflSubmitResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type bflPollResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

func (b *BFL) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := b.keys.Key(ctx, ProviderBFL)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &CredentialError{Provider: ProviderBFL}
	}

	model := p.Model
	if _, ok := bflModels[model]; !ok {
		model = bflDefaultModel
	}
	width, height := dimensionsFor(p.AspectRatio)
	count := p.Count
	if count <= 0 {
		count = 1
	}

	var images []Image
	for i := 0; i < count; i++ {
		taskID, err := b.submit(ctx, key, bflModels[model], p.Prompt, width, height, p.Advanced)
		if err != nil {
			return nil, err
		}
		sampleURL, err := b.poll(ctx, key, taskID)
		if err != nil {
			return nil, err
		}
		data, mime, err := downloadImage(ctx, b.client, sampleURL)
		if err != nil {
			return nil, vendorErrf(ProviderBFL, "%v", err)
		}
		images = append(images, Image{Data: data, MIME: mime})
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}

	cost, ok := bflCosts[model]
	if !ok {
		cost = 0.025
	}
	return &Result{Images: images, Cost: cost * float64(len(images))}, nil
}

func (b *BFL) submit(ctx context.Context, key, model, prompt string, width, height int, adv Advanced) (string, error) {
	payload := map[string]any{
		"prompt": prompt,
		"width":  width,
		"height": height,
	}
	if adv.Seed != nil {
		payload["seed"] = *adv.Seed
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("bfl: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/"+model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("bfl: build request: %w", err)
	}
	req.Header.Set("x-key", key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", vendorErrf(ProviderBFL, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", vendorErrf(ProviderBFL, "read response: %v", err)
	}

	var decoded bflSubmitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", vendorErrf(ProviderBFL, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", &VendorError{Provider: ProviderBFL, Message: msg}
	}
	if decoded.ID == "" {
		return "", vendorErrf(ProviderBFL, "submit returned no task id")
	}
	return decoded.ID, nil
}

// poll checks the result endpoint once per interval. A terminal Error
// status fails immediately; exhausting the attempt budget is a timeout.
func (b *BFL) poll(ctx context.Context, key, taskID string) (string, error) {
	for attempt := 0; attempt < b.maxPolls; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/get_result?id="+taskID, nil)
		if err != nil {
			return "", fmt.Errorf("bfl: build poll request: %w", err)
		}
		req.Header.Set("x-key", key)

		resp, err := b.client.Do(req)
		if err != nil {
			return "", vendorErrf(ProviderBFL, "poll request: %v", err)
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", vendorErrf(ProviderBFL, "read poll response: %v", err)
		}
		if resp.StatusCode >= 300 {
			return "", vendorErrf(ProviderBFL, "poll status %d", resp.StatusCode)
		}

		var decoded bflPollResponse
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return "", vendorErrf(ProviderBFL, "decode poll response: %v", err)
		}
		switch decoded.Status {
		case "Ready":
			if decoded.Result.Sample == "" {
				return "", ErrEmptyResult
			}
			return decoded.Result.Sample, nil
		case "Error":
			msg := decoded.Error
			if msg == "" {
				msg = "generation failed"
			}
			return "", &VendorError{Provider: ProviderBFL, Message: msg}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(b.pollInterval):
		}
	}
	return "", &VendorError{Provider: ProviderBFL, Message: "generation timed out"}
}

var _ Adapter = (*BFL)(nil)
