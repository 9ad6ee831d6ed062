package handler

import (
	"context"
	"net/http"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Health returns a health check handler. A nil pinger means the service runs
// without a database (dry-run mode) and is always reported healthy.
func (h *BaseHandler) Health(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				h.Logger.Warn("health: database ping failed", "err", err)
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		h.writeEnvelope(w, r, code, envelope{"status": status})
	}
}
