package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

const stabilityDefaultModel = "sd3-large"

var stabilityCosts = map[string]float64{
	"sd3-large":  0.065,
	"sd3-medium": 0.035,
	"sdxl-1.0":   0.002,
}

// Stability integrates the Stability AI stable-image endpoints. Generation
// is JSON; edit, inpaint and upscale are multipart form uploads.
type Stability struct {
	keys    KeySource
	client  *http.Client
	baseURL string
}

func NewStability(keys KeySource, client *http.Client) *Stability {
	return &Stability{keys: keys, client: client, baseURL: "https://api.stability.ai"}
}

func (s *Stability) Info() Info {
	return Info{
		ID:           ProviderStability,
		Name:         "Stability AI",
		Models:       []string{"sd3-large", "sd3-medium", "sdxl-1.0"},
		Capabilities: []Capability{CapabilityGenerate, CapabilityEdit, CapabilityInpaint, CapabilityUpscale, CapabilityVariants},
		CostPerImage: 0.003,
	}
}

type stabilityResponse struct {
	Image   string `json:"image"`
	Message string `json:"message"`
}

func (s *Stability) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := s.key(ctx)
	if err != nil {
		return nil, err
	}

	model := p.Model
	if model == "" {
		model = stabilityDefaultModel
	}
	aspect := p.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	count := p.Count
	if count <= 0 {
		count = 1
	}

	var images []Image
	for i := 0; i < count; i++ {
		payload := map[string]any{
			"prompt":        p.Prompt,
			"model":         model,
			"aspect_ratio":  aspect,
			"output_format": "png",
		}
		if neg := strings.TrimSpace(p.Advanced.NegativePrompt); neg != "" {
			payload["negative_prompt"] = neg
		}
		if p.Advanced.Seed != nil {
			payload["seed"] = *p.Advanced.Seed
		}
		img, err := s.callJSON(ctx, key, "/v2beta/stable-image/generate/sd3", payload)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}

	cost, ok := stabilityCosts[model]
	if !ok {
		cost = 0.004
	}
	return &Result{Images: images, Cost: cost * float64(len(images))}, nil
}

func (s *Stability) Edit(ctx context.Context, p EditParams) (*Result, error) {
	key, err := s.key(ctx)
	if err != nil {
		return nil, err
	}
	img, err := s.callForm(ctx, key, "/v2beta/stable-image/generate/sd3", map[string]string{
		"prompt":        p.Prompt,
		"strength":      "0.7",
		"output_format": "png",
	}, formFile{field: "image", name: "image.png", data: p.Image})
	if err != nil {
		return nil, err
	}
	return &Result{Images: []Image{img}, Cost: 0.004}, nil
}

func (s *Stability) Inpaint(ctx context.Context, p InpaintParams) (*Result, error) {
	key, err := s.key(ctx)
	if err != nil {
		return nil, err
	}
	img, err := s.callForm(ctx, key, "/v2beta/stable-image/edit/inpaint", map[string]string{
		"prompt":        p.Prompt,
		"output_format": "png",
	},
		formFile{field: "image", name: "image.png", data: p.Image},
		formFile{field: "mask", name: "mask.png", data: p.Mask},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Images: []Image{img}, Cost: 0.004}, nil
}

func (s *Stability) Upscale(ctx context.Context, p UpscaleParams) (*Result, error) {
	key, err := s.key(ctx)
	if err != nil {
		return nil, err
	}
	endpoint := "/v2beta/stable-image/upscale/fast"
	cost := 0.05
	if p.Scale == 4 {
		endpoint = "/v2beta/stable-image/upscale/creative"
		cost = 0.25
	}
	img, err := s.callForm(ctx, key, endpoint, map[string]string{
		"output_format": "png",
		"scale":         strconv.Itoa(p.Scale),
	}, formFile{field: "image", name: "image.png", data: p.Image})
	if err != nil {
		return nil, err
	}
	return &Result{Images: []Image{img}, Cost: cost}, nil
}

func (s *Stability) key(ctx context.Context) (string, error) {
	key, err := s.keys.Key(ctx, ProviderStability)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", &CredentialError{Provider: ProviderStability}
	}
	return key, nil
}

func (s *Stability) callJSON(ctx context.Context, key, endpoint string, payload map[string]any) (Image, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Image{}, fmt.Errorf("stability: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("stability: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, key)
}

type formFile struct {
	field string
	name  string
	data  []byte
}

func (s *Stability) callForm(ctx context.Context, key, endpoint string, fields map[string]string, files ...formFile) (Image, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := form.CreateFormFile(f.field, f.name)
		if err != nil {
			return Image{}, fmt.Errorf("stability: build form: %w", err)
		}
		if _, err := part.Write(f.data); err != nil {
			return Image{}, fmt.Errorf("stability: build form: %w", err)
		}
	}
	for field, value := range fields {
		_ = form.WriteField(field, value)
	}
	if err := form.Close(); err != nil {
		return Image{}, fmt.Errorf("stability: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, &buf)
	if err != nil {
		return Image{}, fmt.Errorf("stability: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return s.do(req, key)
}

func (s *Stability) do(req *http.Request, key string) (Image, error) {
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Image{}, vendorErrf(ProviderStability, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, vendorErrf(ProviderStability, "read response: %v", err)
	}

	var decoded stabilityResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Image{}, vendorErrf(ProviderStability, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Image{}, &VendorError{Provider: ProviderStability, Message: msg}
	}
	if decoded.Image == "" {
		return Image{}, ErrEmptyResult
	}
	data, err := base64.StdEncoding.DecodeString(decoded.Image)
	if err != nil {
		return Image{}, vendorErrf(ProviderStability, "decode image data: %v", err)
	}
	return Image{Data: data, MIME: "image/png"}, nil
}

var (
	_ Adapter   = (*Stability)(nil)
	_ Editor    = (*Stability)(nil)
	_ Inpainter = (*Stability)(nil)
	_ Upscaler  = (*Stability)(nil)
)
