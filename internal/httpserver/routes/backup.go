package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/handlers"
)

func init() { Register("backup", registerBackup) }

func registerBackup(r chi.Router, d deps.Deps) {
	api := r.With(d.API...)
	api.Get("/api/backup", handlers.ExportBackup(d))
	api.Post("/api/backup", handlers.ImportBackup(d))
}
