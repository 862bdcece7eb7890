package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check handles GET /health. It is served in plaintext, outside the sealed channel.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	// 🛡️ SLA: Use a tight timeout for health checks
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		// 🚨 FAIL: the API is up but storage is not
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unhealthy: database unreachable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("healthy"))
}
