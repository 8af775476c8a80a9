package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
)

// PermissionDenied is surfaced once when enabling notifications fails.
const PermissionDenied = "Permission denied"

type settingsRequest struct {
	NotificationsEnabled     bool              `json:"notificationsEnabled"`
	DigestModeEnabled        bool              `json:"digestModeEnabled"`
	AffiliateLinkBase        string            `json:"affiliateLinkBase" validate:"omitempty,url,max=500"`
	CategoryStorePreferences map[string]string `json:"categoryStorePreferences" validate:"omitempty,dive,omitempty,url,max=500"`
}

type settingsResponse struct {
	Settings domain.AppSettings `json:"settings"`
	Warning  string             `json:"warning,omitempty"`
}

func GetSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Store.GetAppSettings(r.Context())
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// PutSettings replaces the settings. Switching notifications on asks the
// notifier for permission; a refusal is reported in "warning" but the
// toggle is still saved, and the engine stays gated until permission is
// granted.
func PutSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		prefs := make(map[domain.Category]string, len(req.CategoryStorePreferences))
		for k, v := range req.CategoryStorePreferences {
			c, ok := domain.ParseCategory(k)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown category: "+k)
				return
			}
			prefs[c] = v
		}

		current, err := d.Store.GetAppSettings(r.Context())
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		next := domain.AppSettings{
			NotificationsEnabled:     req.NotificationsEnabled,
			DigestModeEnabled:        req.DigestModeEnabled,
			AffiliateLinkBase:        req.AffiliateLinkBase,
			CategoryStorePreferences: prefs,
		}
		if next.AffiliateLinkBase == "" {
			next.AffiliateLinkBase = domain.DefaultAffiliateLinkBase
		}

		resp := settingsResponse{Settings: next}
		if next.NotificationsEnabled && !current.NotificationsEnabled {
			granted, err := d.Notifier.RequestPermission(r.Context())
			if err != nil {
				d.Logger.Warn("notification permission request failed", logger.Error(err))
			}
			if !granted {
				resp.Warning = PermissionDenied
			}
		}

		if err := d.Store.SaveAppSettings(r.Context(), next); err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type permissionResponse struct {
	Granted bool `json:"granted"`
}

func GetPermission(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, permissionResponse{Granted: d.Notifier.PermissionGranted(r.Context())})
	}
}

func RequestPermission(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		granted, err := d.Notifier.RequestPermission(r.Context())
		if err != nil {
			d.Logger.Warn("notification permission request failed", logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, permissionResponse{Granted: granted})
	}
}
