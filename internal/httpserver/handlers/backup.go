package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/shelfwatch/internal/backup"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
)

// ExportBackup downloads every item as a JSON file.
func ExportBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Store.GetItems(r.Context())
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		data, err := backup.Export(items)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		name := backup.Filename(d.Now().In(d.Loc()))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

type importResponse struct {
	Imported int `json:"imported"`
}

// ImportBackup replaces the whole collection with a validated document.
func ImportBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}

		items, err := backup.Import(data)
		if err != nil {
			if errors.Is(err, backup.ErrInvalidDocument) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeStoreError(w, r, d, err)
			return
		}

		if err := d.Store.SaveItems(r.Context(), items); err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		d.Logger.Info("backup imported", logger.Int("items", len(items)))
		writeJSON(w, http.StatusOK, importResponse{Imported: len(items)})
	}
}
