package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelfwatch/internal/metrics"
)

func init() { Register("ops", registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	ops := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	ops.Get("/readyz", handlers.Readyz(d))
	ops.Get("/infra", handlers.Infra(d))
	ops.Post("/notify/check", handlers.NotifyCheck(d))
	if d.Gatherer != nil {
		ops.Handle("/metrics", metrics.Handler(d.Gatherer))
	}
}
