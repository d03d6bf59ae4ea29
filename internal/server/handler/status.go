package handler

import (
	"net/http"
	"time"
)

// StatusHandler serves the backend mode and cache gauges for the dashboard.
type StatusHandler struct {
	Mode      string
	StartedAt time.Time
	Gauges    map[string]func() int
}

// NewStatusHandler creates a StatusHandler. Each gauge is read on every
// request.
func NewStatusHandler(mode string, gauges map[string]func() int) *StatusHandler {
	return &StatusHandler{Mode: mode, StartedAt: time.Now().UTC(), Gauges: gauges}
}

// GetStatus responds with the current mode, uptime and gauge values.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	gauges := make(map[string]int, len(h.Gauges))
	for name, read := range h.Gauges {
		gauges[name] = read()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
		"gauges":         gauges,
	})
}
