package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sakuga/internal/domain"
)

// FavoritesList returns the favorited history entries.
func (a *App) FavoritesList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Favorites.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	a.json(w, http.StatusOK, map[string]any{"favorites": entries})
}

// FavoritesAdd marks a history entry as a favorite. Idempotent.
func (a *App) FavoritesAdd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Favorites.Add(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "favorited"})
}

// FavoritesRemove unmarks a favorite.
func (a *App) FavoritesRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Favorites.Remove(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "removed"})
}
