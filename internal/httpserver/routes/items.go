package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/handlers"
)

func init() { Register("items", registerItems) }

func registerItems(r chi.Router, d deps.Deps) {
	api := r.With(d.API...)
	api.Get("/api/summary", handlers.Summary(d))
	api.Get("/api/items", handlers.ListItems(d))
	api.Post("/api/items", handlers.CreateItem(d))
	api.Get("/api/items/{id}", handlers.GetItem(d))
	api.Put("/api/items/{id}", handlers.UpdateItem(d))
	api.Delete("/api/items/{id}", handlers.DeleteItem(d))
	api.Post("/api/items/{id}/snooze", handlers.SnoozeItem(d))
	api.Get("/api/items/{id}/reorder", handlers.Reorder(d))
}
