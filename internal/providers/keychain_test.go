package providers

import (
	"context"
	"testing"

	"sakuga/internal/domain"
)

// memoryKeyRepo is an in-memory domain.APIKeyRepository with a lookup
// counter for cache assertions.
type memoryKeyRepo struct {
	keys  map[string]string
	reads int
}

func (m *memoryKeyRepo) Get(_ context.Context, provider string) (string, error) {
	m.reads++
	return m.keys[provider], nil
}

func (m *memoryKeyRepo) Upsert(_ context.Context, provider, key string) error {
	m.keys[provider] = key
	return nil
}

func (m *memoryKeyRepo) Delete(_ context.Context, provider string) error {
	delete(m.keys, provider)
	return nil
}

func (m *memoryKeyRepo) List(context.Context) ([]domain.APIKeyRecord, error) {
	var out []domain.APIKeyRecord
	for provider, key := range m.keys {
		out = append(out, domain.APIKeyRecord{Provider: provider, Key: key})
	}
	return out, nil
}

func TestKeychainDBTakesPrecedenceOverEnv(t *testing.T) {
	repo := &memoryKeyRepo{keys: map[string]string{ProviderOpenAI: "db-key"}}
	keychain := NewKeychain(repo, map[string]string{ProviderOpenAI: "env-key"})

	key, err := keychain.Key(context.Background(), ProviderOpenAI)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != "db-key" {
		t.Fatalf("key = %q, want db-key", key)
	}
}

func TestKeychainFallsBackToEnv(t *testing.T) {
	repo := &memoryKeyRepo{keys: map[string]string{}}
	keychain := NewKeychain(repo, map[string]string{ProviderGemini: "env-key"})

	key, err := keychain.Key(context.Background(), ProviderGemini)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != "env-key" {
		t.Fatalf("key = %q, want env-key", key)
	}
}

func TestKeychainCachesUntilReload(t *testing.T) {
	repo := &memoryKeyRepo{keys: map[string]string{ProviderOpenAI: "first"}}
	keychain := NewKeychain(repo, nil)

	for i := 0; i < 3; i++ {
		if _, err := keychain.Key(context.Background(), ProviderOpenAI); err != nil {
			t.Fatalf("key: %v", err)
		}
	}
	if repo.reads != 1 {
		t.Fatalf("repo reads = %d, want 1 (cached)", repo.reads)
	}

	repo.keys[ProviderOpenAI] = "second"
	key, _ := keychain.Key(context.Background(), ProviderOpenAI)
	if key != "first" {
		t.Fatalf("key = %q, want stale cached value before reload", key)
	}

	keychain.Reload()
	key, _ = keychain.Key(context.Background(), ProviderOpenAI)
	if key != "second" {
		t.Fatalf("key = %q, want second after reload", key)
	}
}

func TestEnvFallbacks(t *testing.T) {
	lookup := func(name string) string {
		switch name {
		case "OPENAI_API_KEY":
			return "  sk-openai  "
		case "BFL_API_KEY":
			return "bfl-key"
		default:
			return ""
		}
	}

	env := EnvFallbacks(lookup)
	if len(env) != 2 {
		t.Fatalf("env entries = %d, want 2", len(env))
	}
	if env[ProviderOpenAI] != "sk-openai" {
		t.Fatalf("openai fallback = %q, want trimmed %q", env[ProviderOpenAI], "sk-openai")
	}
	if env[ProviderBFL] != "bfl-key" {
		t.Fatalf("bfl fallback = %q, want %q", env[ProviderBFL], "bfl-key")
	}
	if _, ok := env[ProviderGemini]; ok {
		t.Fatal("unset variable produced a fallback entry")
	}

	keychain := NewKeychain(nil, env)
	key, err := keychain.Key(context.Background(), ProviderOpenAI)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != "sk-openai" {
		t.Fatalf("key = %q, want sk-openai", key)
	}
}

func TestEnvVar(t *testing.T) {
	if name, ok := EnvVar(ProviderReplicate); !ok || name != "REPLICATE_API_TOKEN" {
		t.Fatalf("EnvVar(replicate) = %q, %v", name, ok)
	}
	if _, ok := EnvVar(ProviderA1111); ok {
		t.Fatal("a1111 should have no key variable")
	}
}
