package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sakuga/internal/domain"
)

type collectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CollectionsList returns all collections with item counts.
func (a *App) CollectionsList(w http.ResponseWriter, r *http.Request) {
	collections, err := a.Collections.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if collections == nil {
		collections = []domain.Collection{}
	}
	a.json(w, http.StatusOK, map[string]any{"collections": collections})
}

// CollectionsCreate adds a collection.
func (a *App) CollectionsCreate(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}
	c := &domain.Collection{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := a.Collections.Create(r.Context(), c); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, c)
}

// CollectionsUpdate renames a collection.
func (a *App) CollectionsUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}
	if err := a.Collections.Update(r.Context(), id, req.Name, strings.TrimSpace(req.Description)); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.Collections.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, c)
}

// CollectionsDelete removes a collection. Its entries stay in history
// with their collection cleared.
func (a *App) CollectionsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Collections.Delete(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type assignCollectionRequest struct {
	CollectionID *string `json:"collectionId"`
}

// HistorySetCollection assigns a history entry to a collection, or
// clears the assignment when collectionId is null.
func (a *App) HistorySetCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req assignCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.CollectionID != nil {
		if _, err := a.Collections.Get(r.Context(), *req.CollectionID); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if err := a.History.SetCollection(r.Context(), id, req.CollectionID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "updated"})
}
