package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the forecast routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/forecast", h.HandleForecast)
}
