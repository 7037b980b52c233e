package providers

import (
	"context"
	"strings"
	"sync"

	"sakuga/internal/domain"
)

// envKeys maps provider ids to their environment-variable fallbacks.
var envKeys = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderStability: "STABILITY_API_KEY",
	ProviderReplicate: "REPLICATE_API_TOKEN",
	ProviderGemini:    "GEMINI_API_KEY",
	ProviderIdeogram:  "IDEOGRAM_API_KEY",
	ProviderFAL:       "FAL_KEY",
	ProviderTogether:  "TOGETHER_API_KEY",
	ProviderBFL:       "BFL_API_KEY",
}

// EnvVar returns the environment-variable name holding the fallback key
// for a provider. The second return is false for providers without one
// (a1111 is keyless).
func EnvVar(provider string) (string, bool) {
	name, ok := envKeys[provider]
	return name, ok
}

// EnvFallbacks resolves every provider's fallback key through lookup
// (typically os.Getenv) and returns the map NewKeychain expects.
// Providers whose variable is unset are omitted.
func EnvFallbacks(lookup func(string) string) map[string]string {
	env := make(map[string]string, len(envKeys))
	for provider, name := range envKeys {
		if v := strings.TrimSpace(lookup(name)); v != "" {
			env[provider] = v
		}
	}
	return env
}

// Keychain resolves effective API keys: a DB-stored key takes precedence
// over the environment-variable fallback. Resolutions are cached in memory;
// Reload clears the entire cache whenever a key is changed.
type Keychain struct {
	repo domain.APIKeyRepository
	env  map[string]string

	mu    sync.Mutex
	cache map[string]string
}

// NewKeychain wires the key resolution chain. repo may be nil, in which
// case only environment fallbacks apply. env holds the fallback values,
// keyed by provider id.
func NewKeychain(repo domain.APIKeyRepository, env map[string]string) *Keychain {
	if env == nil {
		env = map[string]string{}
	}
	return &Keychain{
		repo:  repo,
		env:   env,
		cache: make(map[string]string),
	}
}

// Key returns the effective API key for the provider, or "" when none is
// configured.
func (k *Keychain) Key(ctx context.Context, provider string) (string, error) {
	k.mu.Lock()
	if key, ok := k.cache[provider]; ok {
		k.mu.Unlock()
		return key, nil
	}
	k.mu.Unlock()

	key := ""
	if k.repo != nil {
		stored, err := k.repo.Get(ctx, provider)
		if err != nil {
			return "", err
		}
		key = strings.TrimSpace(stored)
	}
	if key == "" {
		key = strings.TrimSpace(k.env[provider])
	}

	k.mu.Lock()
	k.cache[provider] = key
	k.mu.Unlock()
	return key, nil
}

// Reload drops every cached resolution. Coarse-grained but correct: the
// next lookup per provider re-reads the store.
func (k *Keychain) Reload() {
	k.mu.Lock()
	k.cache = make(map[string]string)
	k.mu.Unlock()
}

var _ KeySource = (*Keychain)(nil)
