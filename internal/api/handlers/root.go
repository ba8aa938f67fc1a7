// Package handlers provides HTTP handlers for the backend server.
package handlers

import (
	"log/slog"
	"net/http"
)

// RootHandler serves the greeting at the root route.
type RootHandler struct {
	greeting string
	logger   *slog.Logger
}

// NewRootHandler creates a new root handler.
func NewRootHandler(greeting string, logger *slog.Logger) *RootHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RootHandler{
		greeting: greeting,
		logger:   logger,
	}
}

// Get handles GET /. It writes the greeting as plain text and ignores any
// request body.
func (h *RootHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(h.greeting)); err != nil {
		h.logger.Debug("failed to write greeting", "error", err)
	}
}
