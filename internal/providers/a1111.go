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

// A1111 talks to a local AUTOMATIC1111 (Stable Diffusion WebUI) instance.
// It is keyless; availability is decided by whether a base URL is
// configured. Generation is free, so every result reports zero cost.
type A1111 struct {
	client  *http.Client
	baseURL string
}

func NewA1111(baseURL string, client *http.Client) *A1111 {
	return &A1111{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *A1111) Info() Info {
	return Info{
		ID:     ProviderA1111,
		Name:   "Automatic1111 (local)",
		Models: []string{"local"},
		Capabilities: []Capability{
			CapabilityGenerate, CapabilityEdit, CapabilityInpaint, CapabilityVariants,
		},
		CostPerImage: 0,
	}
}

type a1111TxtPayload struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Seed           int64   `json:"seed"`
	Steps          int     `json:"steps"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CFGScale       float64 `json:"cfg_scale"`
	SamplerName    string  `json:"sampler_name"`
	BatchSize      int     `json:"batch_size"`
}

type a1111ImgPayload struct {
	a1111TxtPayload
	InitImages        []string `json:"init_images"`
	DenoisingStrength float64  `json:"denoising_strength"`
	Mask              string   `json:"mask,omitempty"`
	InpaintingFill    int      `json:"inpainting_fill,omitempty"`
	InpaintFullRes    bool     `json:"inpaint_full_res,omitempty"`
}

type a1111Response struct {
	Images []string `json:"images"`
	Detail string   `json:"detail"`
}

func basePayload(prompt, aspectRatio string, count int, adv Advanced) a1111TxtPayload {
	width, height := dimensionsFor(aspectRatio)
	p := a1111TxtPayload{
		Prompt:         prompt,
		NegativePrompt: adv.NegativePrompt,
		Seed:           -1,
		Steps:          30,
		Width:          width,
		Height:         height,
		CFGScale:       7,
		SamplerName:    "DPM++ 2M Karras",
		BatchSize:      count,
	}
	if adv.Seed != nil {
		p.Seed = *adv.Seed
	}
	if adv.Steps != nil {
		p.Steps = *adv.Steps
	}
	if adv.CFGScale != nil {
		p.CFGScale = *adv.CFGScale
	}
	if adv.Sampler != "" {
		p.SamplerName = adv.Sampler
	}
	return p
}

func (a *A1111) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	count := p.Count
	if count <= 0 {
		count = 1
	}
	payload := basePayload(p.Prompt, p.AspectRatio, count, p.Advanced)
	return a.post(ctx, "/sdapi/v1/txt2img", payload)
}

func (a *A1111) Edit(ctx context.Context, p EditParams) (*Result, error) {
	payload := a1111ImgPayload{
		a1111TxtPayload:   basePayload(p.Prompt, "1:1", 1, p.Advanced),
		InitImages:        []string{base64.StdEncoding.EncodeToString(p.Image)},
		DenoisingStrength: 0.75,
	}
	return a.post(ctx, "/sdapi/v1/img2img", payload)
}

func (a *A1111) Inpaint(ctx context.Context, p InpaintParams) (*Result, error) {
	payload := a1111ImgPayload{
		a1111TxtPayload:   basePayload(p.Prompt, "1:1", 1, p.Advanced),
		InitImages:        []string{base64.StdEncoding.EncodeToString(p.Image)},
		DenoisingStrength: 0.75,
		Mask:              base64.StdEncoding.EncodeToString(p.Mask),
		InpaintingFill:    1,
		InpaintFullRes:    true,
	}
	return a.post(ctx, "/sdapi/v1/img2img", payload)
}

func (a *A1111) post(ctx context.Context, path string, payload any) (*Result, error) {
	if a.baseURL == "" {
		return nil, &CredentialError{Provider: ProviderA1111}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("a1111: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("a1111: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, vendorErrf(ProviderA1111, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vendorErrf(ProviderA1111, "read response: %v", err)
	}

	var decoded a1111Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, vendorErrf(ProviderA1111, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		msg := decoded.Detail
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &VendorError{Provider: ProviderA1111, Message: msg}
	}
	if len(decoded.Images) == 0 {
		return nil, ErrEmptyResult
	}

	images := make([]Image, 0, len(decoded.Images))
	for _, enc := range decoded.Images {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, vendorErrf(ProviderA1111, "decode image: %v", err)
		}
		images = append(images, Image{Data: data, MIME: "image/png"})
	}
	return &Result{Images: images, Cost: 0}, nil
}

var (
	_ Adapter   = (*A1111)(nil)
	_ Editor    = (*A1111)(nil)
	_ Inpainter = (*A1111)(nil)
)
