package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const ideogramDefaultModel = "V_2"

var ideogramAspects = map[string]string{
	"1:1":  "ASPECT_1_1",
	"16:9": "ASPECT_16_9",
	"9:16": "ASPECT_9_16",
	"4:3":  "ASPECT_4_3",
	"3:4":  "ASPECT_3_4",
}

var ideogramCosts = map[string]float64{
	"V_2":       0.08,
	"V_2_TURBO": 0.05,
	"V_1":       0.02,
	"V_1_TURBO": 0.01,
}

// Ideogram integrates the ideogram.ai generate endpoint. Results come back
// as URLs and are downloaded into the normalized envelope.
type Ideogram struct {
	keys    KeySource
	client  *http.Client
	baseURL string
}

func NewIdeogram(keys KeySource, client *http.Client) *Ideogram {
	return &Ideogram{keys: keys, client: client, baseURL: "https://api.ideogram.ai"}
}

func (i *Ideogram) Info() Info {
	return Info{
		ID:           ProviderIdeogram,
		Name:         "Ideogram",
		Models:       []string{"V_2", "V_2_TURBO", "V_1", "V_1_TURBO"},
		Capabilities: []Capability{CapabilityGenerate, CapabilityVariants},
		CostPerImage: 0.08,
	}
}

type ideogramResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Message string `json:"message"`
}

func (i *Ideogram) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := i.keys.Key(ctx, ProviderIdeogram)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &CredentialError{Provider: ProviderIdeogram}
	}

	model := p.Model
	if model == "" {
		model = ideogramDefaultModel
	}
	aspect, ok := ideogramAspects[p.AspectRatio]
	if !ok {
		aspect = "ASPECT_1_1"
	}
	count := p.Count
	if count <= 0 {
		count = 1
	}

	var images []Image
	for n := 0; n < count; n++ {
		payload := map[string]any{
			"image_request": map[string]any{
				"prompt":              p.Prompt,
				"model":               model,
				"aspect_ratio":        aspect,
				"magic_prompt_option": "AUTO",
			},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ideogram: encode request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/generate", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("ideogram: build request: %w", err)
		}
		req.Header.Set("Api-Key", key)
		req.Header.Set("Content-Type", "application/json")

		resp, err := i.client.Do(req)
		if err != nil {
			return nil, vendorErrf(ProviderIdeogram, "http request: %v", err)
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, vendorErrf(ProviderIdeogram, "read response: %v", err)
		}

		var decoded ideogramResponse
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, vendorErrf(ProviderIdeogram, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		if resp.StatusCode >= 300 {
			msg := decoded.Message
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.StatusCode)
			}
			return nil, &VendorError{Provider: ProviderIdeogram, Message: msg}
		}
		for _, item := range decoded.Data {
			if item.URL == "" {
				continue
			}
			data, mime, err := downloadImage(ctx, i.client, item.URL)
			if err != nil {
				return nil, vendorErrf(ProviderIdeogram, "%v", err)
			}
			images = append(images, Image{Data: data, MIME: mime})
			break
		}
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}

	cost, ok := ideogramCosts[model]
	if !ok {
		cost = 0.08
	}
	return &Result{Images: images, Cost: cost * float64(len(images))}, nil
}

var _ Adapter = (*Ideogram)(nil)
