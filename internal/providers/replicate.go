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

const replicateDefaultModel = "flux-schnell"

// replicateModels maps friendly names to Replicate model paths. Entries with
// a pinned version run through the generic predictions endpoint.
var replicateModels = map[string]string{
	"flux-pro":     "black-forest-labs/flux-pro",
	"flux-schnell": "black-forest-labs/flux-schnell",
	"sdxl":         "stability-ai/sdxl:39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b",
}

const replicateUpscaleVersion = "nightmareai/real-esrgan:f121d640bd286e1fdc67f9799164c1d5be36ff74576ee11c803ae5b665dd46aa"

var replicateCosts = map[string]float64{
	"flux-pro":     0.055,
	"flux-schnell": 0.003,
	"sdxl":         0.002,
}

// Replicate integrates replicate.com predictions in blocking mode
// (Prefer: wait), then downloads the produced image URLs.
type Replicate struct {
	keys    KeySource
	client  *http.Client
	baseURL string
}

func NewReplicate(keys KeySource, client *http.Client) *Replicate {
	return &Replicate{keys: keys, client: client, baseURL: "https://api.replicate.com"}
}

func (r *Replicate) Info() Info {
	return Info{
		ID:           ProviderReplicate,
		Name:         "Replicate",
		Models:       []string{"flux-pro", "flux-schnell", "sdxl"},
		Capabilities: []Capability{CapabilityGenerate, CapabilityUpscale, CapabilityVariants},
		CostPerImage: 0.003,
	}
}

type replicatePrediction struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	Detail string          `json:"detail"`
}

func (r *Replicate) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := r.key(ctx)
	if err != nil {
		return nil, err
	}

	model := p.Model
	if _, ok := replicateModels[model]; !ok {
		model = replicateDefaultModel
	}
	aspect := p.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	count := p.Count
	if count <= 0 {
		count = 1
	}

	input := map[string]any{
		"prompt":        p.Prompt,
		"aspect_ratio":  aspect,
		"output_format": "png",
		"num_outputs":   1,
	}
	if p.Advanced.Seed != nil {
		input["seed"] = *p.Advanced.Seed
	}

	var images []Image
	for i := 0; i < count; i++ {
		urls, err := r.run(ctx, key, replicateModels[model], input)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			data, mime, err := downloadImage(ctx, r.client, u)
			if err != nil {
				return nil, vendorErrf(ProviderReplicate, "%v", err)
			}
			images = append(images, Image{Data: data, MIME: mime})
		}
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}

	cost, ok := replicateCosts[model]
	if !ok {
		cost = 0.003
	}
	return &Result{Images: images, Cost: cost * float64(len(images))}, nil
}

// Upscale runs Real-ESRGAN over a data-URL encoded input.
func (r *Replicate) Upscale(ctx context.Context, p UpscaleParams) (*Result, error) {
	key, err := r.key(ctx)
	if err != nil {
		return nil, err
	}
	scale := p.Scale
	if scale <= 0 {
		scale = 2
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", p.MIME, base64.StdEncoding.EncodeToString(p.Image))
	urls, err := r.run(ctx, key, replicateUpscaleVersion, map[string]any{
		"image":        dataURL,
		"scale":        scale,
		"face_enhance": false,
	})
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, ErrEmptyResult
	}
	data, mime, err := downloadImage(ctx, r.client, urls[0])
	if err != nil {
		return nil, vendorErrf(ProviderReplicate, "%v", err)
	}
	return &Result{Images: []Image{{Data: data, MIME: mime}}, Cost: 0.01}, nil
}

func (r *Replicate) key(ctx context.Context) (string, error) {
	key, err := r.keys.Key(ctx, ProviderReplicate)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", &CredentialError{Provider: ProviderReplicate}
	}
	return key, nil
}

// run submits one blocking prediction and returns the output image URLs.
func (r *Replicate) run(ctx context.Context, key, model string, input map[string]any) ([]string, error) {
	endpoint := r.baseURL + "/v1/predictions"
	payload := map[string]any{"input": input}
	if name, version, pinned := strings.Cut(model, ":"); pinned {
		_ = name
		payload["version"] = version
	} else {
		endpoint = fmt.Sprintf("%s/v1/models/%s/predictions", r.baseURL, model)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Prefer", "wait")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, vendorErrf(ProviderReplicate, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vendorErrf(ProviderReplicate, "read response: %v", err)
	}

	var pred replicatePrediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, vendorErrf(ProviderReplicate, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		msg := pred.Detail
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &VendorError{Provider: ProviderReplicate, Message: msg}
	}
	if pred.Status == "failed" || pred.Status == "canceled" {
		msg := pred.Error
		if msg == "" {
			msg = "prediction " + pred.Status
		}
		return nil, &VendorError{Provider: ProviderReplicate, Message: msg}
	}

	return decodeReplicateOutput(pred.Output), nil
}

// decodeReplicateOutput accepts either a single URL string or a list.
func decodeReplicateOutput(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

var (
	_ Adapter  = (*Replicate)(nil)
	_ Upscaler = (*Replicate)(nil)
)
