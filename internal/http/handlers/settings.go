package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type maskedKey struct {
	Provider  string `json:"provider"`
	Masked    string `json:"masked"`
	UpdatedAt string `json:"updatedAt"`
}

// maskKey keeps the first and last four characters of long keys and
// hides short ones completely.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// SettingsKeysList lists stored provider keys in masked form. Raw keys
// never leave the server.
func (a *App) SettingsKeysList(w http.ResponseWriter, r *http.Request) {
	records, err := a.Keys.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	keys := make([]maskedKey, 0, len(records))
	for _, rec := range records {
		keys = append(keys, maskedKey{
			Provider:  rec.Provider,
			Masked:    maskKey(rec.Key),
			UpdatedAt: rec.UpdatedAt.Format(timeFormat),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"keys": keys})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

type upsertKeyRequest struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
}

// SettingsKeysUpsert stores or replaces a provider key and reloads the
// keychain so the change takes effect immediately.
func (a *App) SettingsKeysUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Provider = strings.TrimSpace(req.Provider)
	req.Key = strings.TrimSpace(req.Key)
	if req.Provider == "" || req.Key == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "provider and key are required")
		return
	}
	if _, err := a.Registry.Resolve(req.Provider); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Keys.Upsert(r.Context(), req.Provider, req.Key); err != nil {
		a.fail(w, r, err)
		return
	}
	a.Registry.ReloadKeys()
	a.json(w, http.StatusOK, map[string]string{"status": "saved"})
}

// SettingsKeysDelete removes a stored key. The provider falls back to
// its environment variable, if any.
func (a *App) SettingsKeysDelete(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if err := a.Keys.Delete(r.Context(), provider); err != nil {
		a.fail(w, r, err)
		return
	}
	a.Registry.ReloadKeys()
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}
