package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Items  *int   `json:"items,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":    checkStore(r, d),
			"notifier": checkNotifier(r, d),
			"lookup":   checkLookup(d),
			"notify_job": {
				OK:   true,
				Mode: jobMode(d),
			},
		}
		if d.RedisClient != nil {
			components["redis"] = checkRedis(r, d)
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

// determineMode is "critical" without a store, "degraded" when an
// optional part is off, "optimal" otherwise.
func determineMode(components map[string]componentStatus) string {
	if s, ok := components["store"]; ok && !s.OK {
		return "critical"
	}
	for name, c := range components {
		if name != "store" && !c.OK {
			return "degraded"
		}
	}
	return "optimal"
}

func checkStore(r *http.Request, d deps.Deps) componentStatus {
	items, err := d.Store.GetItems(r.Context())
	if err != nil {
		return componentStatus{OK: false, Mode: d.StoreBackend, Error: err.Error()}
	}
	n := len(items)
	return componentStatus{OK: true, Mode: d.StoreBackend, Items: &n}
}

func checkRedis(r *http.Request, d deps.Deps) componentStatus {
	if err := pingRedis(r.Context(), d); err != nil {
		return componentStatus{OK: false, Mode: "unreachable", Error: "timeout"}
	}
	return componentStatus{OK: true, Mode: "connected"}
}

func checkNotifier(r *http.Request, d deps.Deps) componentStatus {
	if !d.Notifier.PermissionGranted(r.Context()) {
		return componentStatus{OK: false, Mode: "gated", Impact: "notifications-suppressed"}
	}
	return componentStatus{OK: true, Mode: "granted"}
}

func checkLookup(d deps.Deps) componentStatus {
	if !d.LookupEnabled {
		return componentStatus{OK: false, Mode: "fallback-only", Impact: "search-links-only"}
	}
	return componentStatus{OK: true, Mode: "remote+cache", Impact: domain.DefaultAffiliateLinkBase + " as fallback"}
}

func jobMode(d deps.Deps) string {
	if d.NotifyRunning != nil && d.NotifyRunning() {
		return "running"
	}
	return "idle"
}
