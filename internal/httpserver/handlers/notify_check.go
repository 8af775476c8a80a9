package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
)

// NotifyCheck triggers an immediate notification check
func NotifyCheck(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.NotifyTrigger <- struct{}{}:
			d.Logger.Info("manual notification check triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Notification check triggered\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("notification check already pending",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Notification check already pending, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
