package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"sakuga/internal/domain"
	"sakuga/internal/generation"
	"sakuga/internal/infra"
	"sakuga/internal/providers"
	"sakuga/internal/storage"
)

// memQueue is an in-memory domain.QueueRepository for handler tests.
type memQueue struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (m *memQueue) Enqueue(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = domain.JobStatusPending
	job.CreatedAt = time.Now()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *memQueue) List(context.Context) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out, nil
}

func (m *memQueue) Get(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID == id {
			copied := *job
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memQueue) NextPending(context.Context) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.Status == domain.JobStatusPending {
			copied := *job
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memQueue) SetStatus(_ context.Context, id string, status domain.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID == id {
			job.Status = status
			job.Error = errMsg
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memQueue) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, job := range m.jobs {
		if job.ID == id {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memQueue) Retry(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID != id {
			continue
		}
		if job.Status != domain.JobStatusFailed {
			return nil, domain.ErrInvalidJobState
		}
		job.Status = domain.JobStatusPending
		job.Error = ""
		job.RetryCount++
		copied := *job
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memQueue) ResetProcessing(context.Context) (int, error) { return 0, nil }

// memHistory is an in-memory domain.HistoryRepository.
type memHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (m *memHistory) Add(_ context.Context, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memHistory) List(_ context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoryEntry
	for _, e := range m.entries {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Provider != "" && e.Provider != filter.Provider {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memHistory) Get(_ context.Context, id string) (*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			copied := e
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memHistory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memHistory) SetCollection(_ context.Context, id string, collectionID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].CollectionID = collectionID
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memHistory) Stats(context.Context) (*domain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.Stats{TotalGenerations: len(m.entries)}
	for _, e := range m.entries {
		stats.TotalCost += e.Cost
	}
	return stats, nil
}

// memKeys is an in-memory domain.APIKeyRepository.
type memKeys struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemKeys() *memKeys { return &memKeys{keys: map[string]string{}} }

func (m *memKeys) Get(_ context.Context, provider string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[provider], nil
}

func (m *memKeys) Upsert(_ context.Context, provider, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[provider] = key
	return nil
}

func (m *memKeys) Delete(_ context.Context, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[provider]; !ok {
		return domain.ErrNotFound
	}
	delete(m.keys, provider)
	return nil
}

func (m *memKeys) List(context.Context) ([]domain.APIKeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.APIKeyRecord
	for provider, key := range m.keys {
		out = append(out, domain.APIKeyRecord{Provider: provider, Key: key, UpdatedAt: time.Now()})
	}
	return out, nil
}

// stubKicker records Kick calls.
type stubKicker struct {
	mu    sync.Mutex
	kicks int
	busy  bool
}

func (s *stubKicker) Kick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kicks++
}

func (s *stubKicker) Busy() bool { return s.busy }

func (s *stubKicker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kicks
}

// fixedAdapter always returns the configured result.
type fixedAdapter struct {
	info   providers.Info
	result *providers.Result
	err    error
}

func (f *fixedAdapter) Info() providers.Info { return f.info }

func (f *fixedAdapter) Generate(context.Context, providers.GenerateParams) (*providers.Result, error) {
	return f.result, f.err
}

type testEnv struct {
	app     *App
	queue   *memQueue
	history *memHistory
	keys    *memKeys
	kicker  *stubKicker
}

func newTestApp(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	queueRepo := &memQueue{}
	historyRepo := &memHistory{}
	keyRepo := newMemKeys()
	kicker := &stubKicker{}
	logger := infra.NewLogger("test")

	registry := providers.NewRegistry(providers.Options{
		Keys: providers.NewKeychain(keyRepo, nil),
	})
	registry.Register("mock", &fixedAdapter{
		info: providers.Info{ID: "mock", Capabilities: []providers.Capability{providers.CapabilityGenerate}},
		result: &providers.Result{
			Images: []providers.Image{{Data: []byte("img"), MIME: "image/png"}},
			Cost:   0.05,
		},
	})

	app := &App{
		Log:       logger,
		Registry:  registry,
		Queue:     queueRepo,
		History:   historyRepo,
		Keys:      keyRepo,
		Processor: kicker,
		Recorder:  generation.NewRecorder(store, historyRepo, logger),
		Store:     store,
	}
	return &testEnv{app: app, queue: queueRepo, history: historyRepo, keys: keyRepo, kicker: kicker}
}
