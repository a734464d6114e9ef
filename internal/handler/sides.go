package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Side surcharges added on top of an item's base price when the customer
// picks a side. The frontend uses these for cart arithmetic.
var sidePrices = map[string]string{
	"Uphuthu": "20.00",
	"Jeqe":    "30.00",
}

// SidesHandler serves the side-option price list.
type SidesHandler struct{}

// NewSidesHandler creates a new SidesHandler.
func NewSidesHandler() *SidesHandler {
	return &SidesHandler{}
}

// RegisterRoutes registers side price endpoints on the given Chi router.
func (h *SidesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/side-prices", h.List)
}

// List handles GET /side-prices.
func (h *SidesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sidePrices)
}
