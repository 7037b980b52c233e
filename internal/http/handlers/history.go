package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sakuga/internal/domain"
)

// HistoryList returns a filtered, paginated page of history entries.
func (a *App) HistoryList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.HistoryFilter{
		Type:         domain.GenerationType(q.Get("type")),
		Provider:     q.Get("provider"),
		Search:       q.Get("search"),
		CollectionID: q.Get("collectionId"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	entries, total, err := a.History.List(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	a.json(w, http.StatusOK, map[string]any{
		"items": entries,
		"total": total,
	})
}

// HistoryGet returns one entry with its favorite flag.
func (a *App) HistoryGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := a.History.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	favorite, err := a.Favorites.IsFavorite(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"entry":    entry,
		"favorite": favorite,
	})
}

// HistoryDelete removes an entry together with its stored image files.
func (a *App) HistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := a.History.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.History.Delete(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Store.Remove(entry.ImageURL, entry.ThumbURL); err != nil {
		a.Log.Warn().Err(err).Str("id", id).Msg("remove stored image")
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Stats aggregates generation counts and spend.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.History.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}
