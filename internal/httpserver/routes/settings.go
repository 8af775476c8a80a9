package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/handlers"
)

func init() { Register("settings", registerSettings) }

func registerSettings(r chi.Router, d deps.Deps) {
	api := r.With(d.API...)
	api.Get("/api/settings", handlers.GetSettings(d))
	api.Put("/api/settings", handlers.PutSettings(d))
	api.Get("/api/notifications/permission", handlers.GetPermission(d))
	api.Post("/api/notifications/permission", handlers.RequestPermission(d))
}
