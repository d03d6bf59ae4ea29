package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// FlipReader is the read side of the flip service.
type FlipReader interface {
	Recent(limit int) []domain.Flip
	History(ctx context.Context, limit int) ([]domain.Flip, error)
}

// FlipHandler serves reported flips.
type FlipHandler struct {
	flips  FlipReader
	logger *slog.Logger
}

// NewFlipHandler creates a FlipHandler.
func NewFlipHandler(flips FlipReader, logger *slog.Logger) *FlipHandler {
	return &FlipHandler{flips: flips, logger: logger.With(slog.String("handler", "flips"))}
}

// ListRecent returns the in-memory recent flips, newest first.
// GET /api/flips?limit=N (default and max 200)
func (h *FlipHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 200, 200)
	writeJSON(w, http.StatusOK, h.flips.Recent(limit))
}

// ListHistory returns flips from the history store, newest first.
// GET /api/flips/history?limit=N (default 50, max 500)
func (h *FlipHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)
	flips, err := h.flips.History(r.Context(), limit)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flip history is not enabled")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list flip history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load flip history")
		return
	}
	writeJSON(w, http.StatusOK, flips)
}
