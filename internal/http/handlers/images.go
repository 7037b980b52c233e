package handlers

import (
	"net/http"
	"os"
)

// ServeImage streams a stored image or thumbnail. The store resolves the
// URL path and rejects anything outside its root.
func (a *App) ServeImage(w http.ResponseWriter, r *http.Request) {
	path, err := a.Store.Resolve(r.URL.Path)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid image path")
		return
	}
	if _, err := os.Stat(path); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	http.ServeFile(w, r, path)
}
