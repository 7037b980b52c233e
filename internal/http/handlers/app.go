// Package handlers contains the HTTP endpoints of the API server.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"sakuga/internal/auth"
	"sakuga/internal/domain"
	"sakuga/internal/generation"
	"sakuga/internal/infra"
	"sakuga/internal/prompt"
	"sakuga/internal/providers"
	"sakuga/internal/storage"
)

// JobKicker wakes the queue processor after an enqueue or retry.
type JobKicker interface {
	Kick()
	Busy() bool
}

// App carries every dependency the endpoints need.
type App struct {
	Log         infra.Logger
	Registry    *providers.Registry
	Queue       domain.QueueRepository
	History     domain.HistoryRepository
	Collections domain.CollectionRepository
	Favorites   domain.FavoriteRepository
	Keys        domain.APIKeyRepository
	Auth        *auth.Service
	Processor   JobKicker
	Recorder    *generation.Recorder
	Enhancer    prompt.Enhancer
	Store       *storage.FileStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// fail maps domain and provider errors onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the response body.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var unknown *providers.UnknownProviderError
	var unsupported *providers.UnsupportedOperationError
	var credential *providers.CredentialError
	var vendor *providers.VendorError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrInvalidJobState):
		a.error(w, http.StatusBadRequest, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		a.error(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.As(err, &unknown):
		a.error(w, http.StatusBadRequest, "unknown_provider", unknown.Error())
	case errors.As(err, &unsupported):
		a.error(w, http.StatusBadRequest, "unsupported_operation", unsupported.Error())
	case errors.As(err, &credential):
		a.error(w, http.StatusBadRequest, "missing_api_key", credential.Error())
	case errors.As(err, &vendor):
		a.error(w, http.StatusBadGateway, "provider_error", vendor.Error())
	case errors.Is(err, providers.ErrEmptyResult):
		a.error(w, http.StatusBadGateway, "provider_error", err.Error())
	default:
		a.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
