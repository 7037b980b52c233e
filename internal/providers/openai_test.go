package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestOpenAIGenerateDalle3LoopsPerImage(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/images/generations", map[string]any{
		"data": []any{
			map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte("img"))},
		},
	})
	adapter := NewOpenAI(staticKeys{ProviderOpenAI: "sk-test"}, testClient(transport))
	adapter.baseURL = "https://api.openai.com/v1"

	result, err := adapter.Generate(context.Background(), GenerateParams{
		Prompt: "a red fox", Count: 2, AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := transport.calls("/v1/images/generations"); got != 2 {
		t.Fatalf("api calls = %d, want 2", got)
	}
	if len(result.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(result.Images))
	}
	if result.Cost != 0.08 {
		t.Fatalf("cost = %v, want 0.08", result.Cost)
	}

	var req openAIImageRequest
	if err := json.Unmarshal(transport.lastBody(), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.N != 1 {
		t.Fatalf("n = %d, want 1 per dall-e-3 call", req.N)
	}
	if req.Size != "1792x1024" {
		t.Fatalf("size = %q, want 1792x1024", req.Size)
	}
	if req.ResponseFormat != "b64_json" {
		t.Fatalf("response_format = %q, want b64_json", req.ResponseFormat)
	}
}

func TestOpenAIGenerateDalle2SingleBatch(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/images/generations", map[string]any{
		"data": []any{
			map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte("one"))},
			map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte("two"))},
			map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte("three"))},
		},
	})
	adapter := NewOpenAI(staticKeys{ProviderOpenAI: "sk-test"}, testClient(transport))

	result, err := adapter.Generate(context.Background(), GenerateParams{
		Prompt: "a red fox", Model: "dall-e-2", Count: 3,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := transport.calls("/v1/images/generations"); got != 1 {
		t.Fatalf("api calls = %d, want 1", got)
	}
	var req openAIImageRequest
	if err := json.Unmarshal(transport.lastBody(), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.N != 3 {
		t.Fatalf("n = %d, want 3", req.N)
	}
	if result.Cost != 0.06 {
		t.Fatalf("cost = %v, want 0.06", result.Cost)
	}
}

func TestOpenAIGenerateMissingKeySkipsNetwork(t *testing.T) {
	transport := newCaptureTransport()
	adapter := NewOpenAI(staticKeys{}, testClient(transport))

	_, err := adapter.Generate(context.Background(), GenerateParams{Prompt: "a red fox"})
	var credential *CredentialError
	if !errors.As(err, &credential) {
		t.Fatalf("err = %v, want CredentialError", err)
	}
	if credential.Provider != ProviderOpenAI {
		t.Fatalf("provider = %q, want %q", credential.Provider, ProviderOpenAI)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("network calls = %d, want 0", len(transport.requests))
	}
}

func TestOpenAIGenerateVendorErrorMessage(t *testing.T) {
	transport := newCaptureTransport()
	transport.setErrorResponse("/v1/images/generations", 400, map[string]any{
		"error": map[string]any{"message": "billing hard limit reached"},
	})
	adapter := NewOpenAI(staticKeys{ProviderOpenAI: "sk-test"}, testClient(transport))

	_, err := adapter.Generate(context.Background(), GenerateParams{Prompt: "a red fox"})
	var vendor *VendorError
	if !errors.As(err, &vendor) {
		t.Fatalf("err = %v, want VendorError", err)
	}
	if vendor.Message != "billing hard limit reached" {
		t.Fatalf("message = %q, want vendor message", vendor.Message)
	}
}

func TestOpenAIGenerateEmptyDataIsError(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/images/generations", map[string]any{"data": []any{}})
	adapter := NewOpenAI(staticKeys{ProviderOpenAI: "sk-test"}, testClient(transport))

	_, err := adapter.Generate(context.Background(), GenerateParams{Prompt: "a red fox"})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}
