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
	"strings"
)

const openAIDefaultModel = "dall-e-3"

var openAICosts = map[string]float64{
	"dall-e-3": 0.04,
	"dall-e-2": 0.02,
}

// openAISizes maps the supported aspect ratios onto DALL-E size strings.
var openAISizes = map[string]string{
	"1:1":  "1024x1024",
	"16:9": "1792x1024",
	"9:16": "1024x1792",
	"4:3":  "1792x1024",
	"3:4":  "1024x1792",
}

// OpenAI integrates the DALL-E image endpoints.
type OpenAI struct {
	keys    KeySource
	client  *http.Client
	baseURL string
}

func NewOpenAI(keys KeySource, client *http.Client) *OpenAI {
	return &OpenAI{keys: keys, client: client, baseURL: "https://api.openai.com/v1"}
}

func (o *OpenAI) Info() Info {
	return Info{
		ID:           ProviderOpenAI,
		Name:         "OpenAI DALL-E",
		Models:       []string{"dall-e-3", "dall-e-2"},
		Capabilities: []Capability{CapabilityGenerate, CapabilityEdit, CapabilityVariants},
		CostPerImage: 0.04,
	}
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := o.keys.Key(ctx, ProviderOpenAI)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &CredentialError{Provider: ProviderOpenAI}
	}

	model := p.Model
	if model == "" {
		model = openAIDefaultModel
	}
	size := openAISizes[p.AspectRatio]
	if size == "" {
		size = "1024x1024"
	}
	count := p.Count
	if count <= 0 {
		count = 1
	}

	var images []Image
	if model == "dall-e-3" {
		// DALL-E 3 only generates one image per call.
		for i := 0; i < count; i++ {
			batch, err := o.call(ctx, key, openAIImageRequest{
				Model: model, Prompt: p.Prompt, N: 1, Size: size, ResponseFormat: "b64_json",
			})
			if err != nil {
				return nil, err
			}
			images = append(images, batch...)
		}
	} else {
		if count > 4 {
			count = 4
		}
		images, err = o.call(ctx, key, openAIImageRequest{
			Model: model, Prompt: p.Prompt, N: count, Size: size, ResponseFormat: "b64_json",
		})
		if err != nil {
			return nil, err
		}
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}

	cost, ok := openAICosts[model]
	if !ok {
		cost = 0.04
	}
	return &Result{Images: images, Cost: cost * float64(len(images))}, nil
}

// Edit runs a DALL-E 2 image edit via the multipart endpoint.
func (o *OpenAI) Edit(ctx context.Context, p EditParams) (*Result, error) {
	key, err := o.keys.Key(ctx, ProviderOpenAI)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &CredentialError{Provider: ProviderOpenAI}
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("openai: build form: %w", err)
	}
	if _, err := part.Write(p.Image); err != nil {
		return nil, fmt.Errorf("openai: build form: %w", err)
	}
	_ = form.WriteField("model", "dall-e-2")
	_ = form.WriteField("prompt", p.Prompt)
	_ = form.WriteField("n", "1")
	_ = form.WriteField("size", "1024x1024")
	_ = form.WriteField("response_format", "b64_json")
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("openai: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+key)

	images, err := o.do(req)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}
	return &Result{Images: images, Cost: 0.02}, nil
}

func (o *OpenAI) call(ctx context.Context, key string, payload openAIImageRequest) ([]Image, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	return o.do(req)
}

func (o *OpenAI) do(req *http.Request) ([]Image, error) {
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, vendorErrf(ProviderOpenAI, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vendorErrf(ProviderOpenAI, "read response: %v", err)
	}

	var decoded openAIImageResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= 300 {
			return nil, vendorErrf(ProviderOpenAI, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return nil, vendorErrf(ProviderOpenAI, "decode response: %v", err)
	}
	if resp.StatusCode >= 300 {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return nil, &VendorError{Provider: ProviderOpenAI, Message: decoded.Error.Message}
		}
		return nil, vendorErrf(ProviderOpenAI, "status %d", resp.StatusCode)
	}

	var images []Image
	for _, item := range decoded.Data {
		if item.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, vendorErrf(ProviderOpenAI, "decode image data: %v", err)
		}
		images = append(images, Image{Data: data, MIME: "image/png"})
	}
	return images, nil
}

var (
	_ Adapter = (*OpenAI)(nil)
	_ Editor  = (*OpenAI)(nil)
)
