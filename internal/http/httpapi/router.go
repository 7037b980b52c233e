// Package httpapi assembles the HTTP routes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"sakuga/internal/http/handlers"
	"sakuga/internal/infra/geoip"
	"sakuga/internal/middleware"
)

// Options configures router construction.
type Options struct {
	Log            zerolog.Logger
	Countries      geoip.CountryResolver
	AllowedOrigins []string
	RateLimit      int
}

// NewRouter wires every endpoint with the shared middleware stack.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	limit := opts.RateLimit
	if limit <= 0 {
		limit = 120
	}
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Log, opts.Countries),
		middleware.CORS(opts.AllowedOrigins),
		middleware.RateLimit(limit, time.Minute),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.Health)
		r.Get("/providers", app.Providers)

		r.Post("/generate", app.Generate)
		r.Post("/edit", app.Edit)
		r.Post("/inpaint", app.Inpaint)
		r.Post("/upscale", app.Upscale)
		r.Post("/enhance-prompt", app.EnhancePrompt)

		r.Route("/queue", func(r chi.Router) {
			r.Post("/", app.QueueAdd)
			r.Get("/", app.QueueList)
			r.Delete("/{id}", app.QueueDelete)
			r.Post("/{id}/retry", app.QueueRetry)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", app.HistoryList)
			r.Get("/{id}", app.HistoryGet)
			r.Delete("/{id}", app.HistoryDelete)
			r.Put("/{id}/collection", app.HistorySetCollection)
			r.Post("/{id}/favorite", app.FavoritesAdd)
			r.Delete("/{id}/favorite", app.FavoritesRemove)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", app.CollectionsList)
			r.Post("/", app.CollectionsCreate)
			r.Put("/{id}", app.CollectionsUpdate)
			r.Delete("/{id}", app.CollectionsDelete)
		})

		r.Get("/favorites", app.FavoritesList)
		r.Get("/stats", app.Stats)

		r.Route("/settings/keys", func(r chi.Router) {
			r.Get("/", app.SettingsKeysList)
			r.Post("/", app.SettingsKeysUpsert)
			r.Delete("/{provider}", app.SettingsKeysDelete)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", app.Register)
			r.Post("/login", app.Login)
			r.Post("/logout", app.Logout)
			r.With(middleware.Session(app.Auth)).Get("/me", app.Me)
			r.With(middleware.Session(app.Auth)).Post("/change-password", app.ChangePassword)
		})
	})

	r.Get("/images/*", app.ServeImage)
	r.Get("/thumbs/*", app.ServeImage)

	return r
}
