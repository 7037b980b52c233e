package providers

import (
	"context"
	"net/http"
	"time"
)

// Provider ids. These match the names the client submits and the env-key
// fallback table.
const (
	ProviderOpenAI    = "openai"
	ProviderStability = "stability"
	ProviderReplicate = "replicate"
	ProviderGemini    = "gemini"
	ProviderIdeogram  = "ideogram"
	ProviderFAL       = "fal"
	ProviderTogether  = "together"
	ProviderBFL       = "bfl"
	ProviderA1111     = "a1111"
)

// Options configures the registry.
type Options struct {
	Keys       *Keychain
	A1111URL   string
	HTTPClient *http.Client
}

// Registry resolves provider names to adapters and gates optional
// operations on each adapter's declared capability set. The Available
// listing is advisory for clients; the queue processor always dispatches
// and lets the adapter raise its own credential error.
type Registry struct {
	adapters map[string]Adapter
	order    []string
	keys     *Keychain
	a1111URL string
}

// NewRegistry constructs every adapter against the shared keychain.
func NewRegistry(opts Options) *Registry {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	keys := opts.Keys
	if keys == nil {
		keys = NewKeychain(nil, nil)
	}

	adapters := map[string]Adapter{
		ProviderOpenAI:    NewOpenAI(keys, client),
		ProviderStability: NewStability(keys, client),
		ProviderReplicate: NewReplicate(keys, client),
		ProviderGemini:    NewGemini(keys, client),
		ProviderIdeogram:  NewIdeogram(keys, client),
		ProviderFAL:       NewFAL(keys, client),
		ProviderTogether:  NewTogether(keys, client),
		ProviderBFL:       NewBFL(keys, client),
		ProviderA1111:     NewA1111(opts.A1111URL, client),
	}

	return &Registry{
		adapters: adapters,
		order: []string{
			ProviderOpenAI, ProviderStability, ProviderReplicate,
			ProviderGemini, ProviderIdeogram, ProviderFAL,
			ProviderTogether, ProviderBFL, ProviderA1111,
		},
		keys:     keys,
		a1111URL: opts.A1111URL,
	}
}

// Register adds or replaces an adapter. Primarily used by tests wiring
// mock providers.
func (r *Registry) Register(id string, adapter Adapter) {
	if _, ok := r.adapters[id]; !ok {
		r.order = append(r.order, id)
	}
	r.adapters[id] = adapter
}

// Resolve returns the adapter for a provider name.
func (r *Registry) Resolve(name string) (Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, &UnknownProviderError{Name: name}
	}
	return adapter, nil
}

// Generate dispatches a text-to-image request.
func (r *Registry) Generate(ctx context.Context, name string, p GenerateParams) (*Result, error) {
	adapter, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return adapter.Generate(ctx, p)
}

// Edit dispatches an image edit, gated on the declared capability.
func (r *Registry) Edit(ctx context.Context, name string, p EditParams) (*Result, error) {
	adapter, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	editor, ok := adapter.(Editor)
	if !ok || !adapter.Info().Has(CapabilityEdit) {
		return nil, &UnsupportedOperationError{Provider: name, Op: CapabilityEdit}
	}
	return editor.Edit(ctx, p)
}

// Inpaint dispatches a masked edit, gated on the declared capability.
func (r *Registry) Inpaint(ctx context.Context, name string, p InpaintParams) (*Result, error) {
	adapter, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	inpainter, ok := adapter.(Inpainter)
	if !ok || !adapter.Info().Has(CapabilityInpaint) {
		return nil, &UnsupportedOperationError{Provider: name, Op: CapabilityInpaint}
	}
	return inpainter.Inpaint(ctx, p)
}

// Upscale dispatches an upscale, gated on the declared capability.
func (r *Registry) Upscale(ctx context.Context, name string, p UpscaleParams) (*Result, error) {
	adapter, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	upscaler, ok := adapter.(Upscaler)
	if !ok || !adapter.Info().Has(CapabilityUpscale) {
		return nil, &UnsupportedOperationError{Provider: name, Op: CapabilityUpscale}
	}
	return upscaler.Upscale(ctx, p)
}

// Available lists providers with a resolvable key, annotated with their
// capability descriptors. A1111 is keyless and listed whenever its base URL
// is configured.
func (r *Registry) Available(ctx context.Context) ([]Info, error) {
	var out []Info
	for _, id := range r.order {
		adapter := r.adapters[id]
		if id == ProviderA1111 {
			if r.a1111URL != "" {
				out = append(out, adapter.Info())
			}
			continue
		}
		key, err := r.keys.Key(ctx, id)
		if err != nil {
			return nil, err
		}
		if key != "" {
			out = append(out, adapter.Info())
		}
	}
	return out, nil
}

// ReloadKeys invalidates every cached key resolution. Called after any
// key add/update/delete through the settings surface.
func (r *Registry) ReloadKeys() {
	r.keys.Reload()
}
