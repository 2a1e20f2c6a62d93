package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/betteragri/marketplace/internal/catalog"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleCheckout converts the caller's cart into a pending order.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var info ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.Checkout(r.Context(), userID, info)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "invalid shipping info",
				"fields": verr.Fields,
			})
		case errors.Is(err, ErrEmptyCart):
			h.writeError(w, http.StatusUnprocessableEntity, "cart is empty")
		case errors.Is(err, catalog.ErrInsufficientQuantity):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("checkout failed", "error", err, "user_id", userID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
