package handlers

import (
	"net/http"

	"sakuga/internal/providers"
)

// Providers lists the providers that currently have a usable credential,
// with their models and capability flags.
func (a *App) Providers(w http.ResponseWriter, r *http.Request) {
	infos, err := a.Registry.Available(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if infos == nil {
		infos = []providers.Info{}
	}
	a.json(w, http.StatusOK, map[string]any{"providers": infos})
}
