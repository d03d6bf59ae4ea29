package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// PipelineHandler serves pipeline trigger endpoints.
type PipelineHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{} // when non-nil, sending wakes the scan loop early
}

// NewPipelineHandler creates a PipelineHandler with the given logger.
func NewPipelineHandler(logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{logger: logger}
}

// WithTriggerChannel sets the channel to send on when a scan is requested.
func (h *PipelineHandler) WithTriggerChannel(ch chan<- struct{}) *PipelineHandler {
	h.triggerCh = ch
	return h
}

// TriggerScan asks the scan loop to start its next cycle without waiting
// out the cooldown. The send is non-blocking so repeated requests coalesce.
// POST /api/scan/trigger
func (h *PipelineHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: scan trigger requested")
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
		default:
			// already triggered and not yet consumed
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
