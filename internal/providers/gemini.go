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

const geminiImageModel = "gemini-2.0-flash-exp-image-generation"

// Gemini integrates Google's generateContent endpoint with image response
// modality. The model ignores aspect ratio and advanced parameters.
type Gemini struct {
	keys    KeySource
	client  *http.Client
	baseURL string
}

func NewGemini(keys KeySource, client *http.Client) *Gemini {
	return &Gemini{keys: keys, client: client, baseURL: "https://generativelanguage.googleapis.com/v1beta"}
}

func (g *Gemini) Info() Info {
	return Info{
		ID:           ProviderGemini,
		Name:         "Google Gemini",
		Models:       []string{geminiImageModel},
		Capabilities: []Capability{CapabilityGenerate, CapabilityEdit},
		CostPerImage: 0.02,
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gemini) Generate(ctx context.Context, p GenerateParams) (*Result, error) {
	key, err := g.key(ctx)
	if err != nil {
		return nil, err
	}
	count := p.Count
	if count <= 0 {
		count = 1
	}

	var images []Image
	for i := 0; i < count; i++ {
		img, err := g.call(ctx, key, []geminiPart{{Text: p.Prompt}})
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, ErrEmptyResult
	}
	return &Result{Images: images, Cost: 0.02 * float64(len(images))}, nil
}

func (g *Gemini) Edit(ctx context.Context, p EditParams) (*Result, error) {
	key, err := g.key(ctx)
	if err != nil {
		return nil, err
	}
	img, err := g.call(ctx, key, []geminiPart{
		{Text: p.Prompt},
		{InlineData: &geminiInlineData{
			MIMEType: p.MIME,
			Data:     base64.StdEncoding.EncodeToString(p.Image),
		}},
	})
	if err != nil {
		return nil, err
	}
	return &Result{Images: []Image{img}, Cost: 0.02}, nil
}

func (g *Gemini) key(ctx context.Context) (string, error) {
	key, err := g.keys.Key(ctx, ProviderGemini)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", &CredentialError{Provider: ProviderGemini}
	}
	return key, nil
}

// call performs one generateContent request and extracts the first inline
// image from the response parts.
func (g *Gemini) call(ctx context.Context, key string, parts []geminiPart) (Image, error) {
	payload := geminiRequest{Contents: []geminiContent{{Parts: parts}}}
	payload.GenerationConfig.ResponseModalities = []string{"Text", "Image"}

	body, err := json.Marshal(payload)
	if err != nil {
		return Image{}, fmt.Errorf("gemini: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, geminiImageModel, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Image{}, vendorErrf(ProviderGemini, "http request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, vendorErrf(ProviderGemini, "read response: %v", err)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Image{}, vendorErrf(ProviderGemini, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 300 {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return Image{}, &VendorError{Provider: ProviderGemini, Message: decoded.Error.Message}
		}
		return Image{}, vendorErrf(ProviderGemini, "status %d", resp.StatusCode)
	}

	for _, candidate := range decoded.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return Image{}, vendorErrf(ProviderGemini, "decode image data: %v", err)
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return Image{Data: data, MIME: mime}, nil
		}
	}
	return Image{}, ErrEmptyResult
}

var (
	_ Adapter = (*Gemini)(nil)
	_ Editor  = (*Gemini)(nil)
)
