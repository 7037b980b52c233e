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

const falDefaultModel = "flux-schnell"

var falModels = map[string]string{
	"flux-pro":     "fal-ai/flux-pro",
	"flux-dev":     "fal-ai/flux/dev",
	"flux-schnell": "fal-ai/flux/schnell",
	"flux-realism": "fal-ai/flux-realism",
	"sdxl":         "fal-ai/fast-sdxl",
}

var falAspects = map[string]string{
	"1:1":  "square",
	"16:9": "landscape_16_9",
	"9:16": "portrait_16_9",
	"4:3":  "landscape_4_3",
	"3:4":  "portrait_4_3",
}

var falCosts = map[string]float64{
	"flux-pro":     0.05,
	"flux-dev":     0.025,
	"flux-schnell": 0.003,
	"flux-realism": 0.025,
	"sdxl":         0.003,
}

// FAL integrates fal.ai's synchronous inference endpoints.
type FAL struct {
	keys    KeySource
	client  *http.Client
	baseURL string
}

func NewFAL(keys KeySource, client *http.Client) *FAL {
	return &FAL{keys: keys, client: client, baseURL: "https://fal.run"}
}

func (f *FAL) Info() Info {
	return Info{
		ID:           ProviderFAL,
		Name:         "FAL",
		Models:       []string{"flux-pro", "flux-dev", "flux-schnell", "flux-realism", "sdxl"},
		Capabilities: []Capability{CapabilityGenerate, CapabilityEdit, CapabilityVariants},
		CostPerImage: 0.003,
	}
}

type falResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Detail any `json:"detail"`
}

func (f *FAL) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := f.key(ctx)
	if err != nil {
		return nil, err
	}

	model := p.Model
	if _, ok := falModels[model]; !ok {
		model = falDefaultModel
	}
	size, ok := falAspects[p.AspectRatio]
	if !ok {
		size = "square"
	}
	count := p.Count
	if count <= 0 {
		count = 1
	}

	var images []Image
	for i := 0; i < count; i++ {
		img, err := f.call(ctx, key, falModels[model], map[string]any{
			"prompt":                p.Prompt,
			"image_size":            size,
			"num_images":            1,
			"enable_safety_checker": false,
		})
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}

	cost, ok := falCosts[model]
	if !ok {
		cost = 0.01
	}
	return &Result{Images: images, Cost: cost * float64(len(images))}, nil
}

// Edit runs the flux image-to-image pipeline over a data-URL input.
func (f *FAL) Edit(ctx context.Context, p EditParams) (*Result, error) {
	key, err := f.key(ctx)
	if err != nil {
		return nil, err
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", p.MIME, base64.StdEncoding.EncodeToString(p.Image))
	img, err := f.call(ctx, key, "fal-ai/flux/dev/image-to-image", map[string]any{
		"prompt":     p.Prompt,
		"image_url":  dataURL,
		"strength":   0.75,
		"num_images": 1,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Images: []Image{img}, Cost: 0.025}, nil
}

func (f *FAL) key(ctx context.Context) (string, error) {
	key, err := f.keys.Key(ctx, ProviderFAL)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", &CredentialError{Provider: ProviderFAL}
	}
	return key, nil
}

func (f *FAL) call(ctx context.Context, key, model string, input map[string]any) (Image, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return Image{}, fmt.Errorf("fal: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/"+model, bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("fal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Image{}, vendorErrf(ProviderFAL, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, vendorErrf(ProviderFAL, "read response: %v", err)
	}

	var decoded falResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Image{}, vendorErrf(ProviderFAL, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		return Image{}, vendorErrf(ProviderFAL, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(decoded.Images) == 0 || decoded.Images[0].URL == "" {
		return Image{}, ErrEmptyResult
	}
	data, mime, err := downloadImage(ctx, f.client, decoded.Images[0].URL)
	if err != nil {
		return Image{}, vendorErrf(ProviderFAL, "%v", err)
	}
	return Image{Data: data, MIME: mime}, nil
}

var (
	_ Adapter = (*FAL)(nil)
	_ Editor  = (*FAL)(nil)
)
