package domain

import "context"

// QueueRepository is the single source of truth for job state.
type QueueRepository interface {
	Enqueue(ctx context.Context, job *Job) error
	List(ctx context.Context) ([]Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	// NextPending returns the oldest pending job or ErrNotFound.
	NextPending(ctx context.Context) (*Job, error)
	SetStatus(ctx context.Context, id string, status JobStatus, errMsg string) error
	Remove(ctx context.Context, id string) error
	// Retry transitions a failed job back to pending, clears its error and
	// increments retry_count. Returns ErrInvalidJobState when the job is not
	// failed and ErrNotFound when it does not exist.
	Retry(ctx context.Context, id string) (*Job, error)
	// ResetProcessing requeues jobs left in processing by a crash.
	ResetProcessing(ctx context.Context) (int, error)
}

// HistoryRepository persists generation results.
type HistoryRepository interface {
	Add(ctx context.Context, entry *HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, int, error)
	Get(ctx context.Context, id string) (*HistoryEntry, error)
	Delete(ctx context.Context, id string) error
	SetCollection(ctx context.Context, id string, collectionID *string) error
	Stats(ctx context.Context) (*Stats, error)
}

// CollectionRepository manages history groupings.
type CollectionRepository interface {
	List(ctx context.Context) ([]Collection, error)
	Get(ctx context.Context, id string) (*Collection, error)
	Create(ctx context.Context, c *Collection) error
	Update(ctx context.Context, id, name, description string) error
	Delete(ctx context.Context, id string) error
}

// FavoriteRepository marks history entries as favorites.
type FavoriteRepository interface {
	Add(ctx context.Context, historyID string) error
	Remove(ctx context.Context, historyID string) error
	List(ctx context.Context) ([]HistoryEntry, error)
	IsFavorite(ctx context.Context, historyID string) (bool, error)
}

// APIKeyRepository stores provider credentials.
type APIKeyRepository interface {
	Get(ctx context.Context, provider string) (string, error)
	Upsert(ctx context.Context, provider, key string) error
	Delete(ctx context.Context, provider string) error
	List(ctx context.Context) ([]APIKeyRecord, error)
}

// UserRepository manages local accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionRepository manages opaque bearer tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	// DeleteByUser revokes every session of one user, returning how many
	// were removed.
	DeleteByUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context) (int, error)
}
