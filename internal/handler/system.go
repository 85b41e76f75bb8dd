package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HandleHealth reports liveness and whether the result cache is attached.
func HandleHealth(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"cache":          app.cache != nil,
			"uptime_seconds": int64(time.Since(app.startedAt).Seconds()),
		})
	}
}

// HandleCacheStats returns cached result counts by type.
func HandleCacheStats(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.cache == nil {
			WriteError(w, http.StatusNotFound, "result cache is disabled")
			return
		}
		stats, err := app.cache.Stats(r.Context())
		if err != nil {
			app.log.Error("[API] cache stats failed", zap.Error(err))
			WriteError(w, http.StatusInternalServerError, "failed to read cache stats")
			return
		}
		total := 0
		for _, n := range stats {
			total += n
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"total":   total,
			"by_type": stats,
		})
	}
}
