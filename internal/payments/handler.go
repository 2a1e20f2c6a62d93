package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/betteragri/marketplace/internal/domain"
	"github.com/betteragri/marketplace/internal/telemetry"
)

type OrderGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// PaymentStore is the persistence surface the handler needs, satisfied by
// *PaymentRepository.
type PaymentStore interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
	Complete(ctx context.Context, paymentID string) (*domain.Payment, error)
	Fail(ctx context.Context, paymentID string) (*domain.Payment, error)
}

type Handler struct {
	repo     PaymentStore
	orders   OrderGetter
	currency string
	metrics  *telemetry.OrderMetrics
	logger   *slog.Logger
}

func NewHandler(repo PaymentStore, orders OrderGetter, currency string, metrics *telemetry.OrderMetrics, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, orders: orders, currency: currency, metrics: metrics, logger: logger}
}

type createPaymentRequest struct {
	OrderID        string               `json:"order_id"`
	Method         domain.PaymentMethod `json:"method"`
	MobileNumber   string               `json:"mobile_number,omitempty"`
	MobileProvider string               `json:"mobile_provider,omitempty"`
	CardLast4      string               `json:"card_last4,omitempty"`
	CardBrand      string               `json:"card_brand,omitempty"`
}

func (r createPaymentRequest) validate() string {
	if r.OrderID == "" {
		return "order_id is required"
	}
	if !r.Method.IsValid() {
		return "unknown payment method"
	}
	switch r.Method {
	case domain.PaymentMethodMobileMoney:
		if r.MobileNumber == "" || r.MobileProvider == "" {
			return "mobile_number and mobile_provider are required for mobile money"
		}
	case domain.PaymentMethodCreditCard:
		if r.CardLast4 == "" {
			return "card_last4 is required for card payments"
		}
	}
	return ""
}

// HandleCreate attaches a pending payment to the caller's order. The amount
// is taken from the order, never from the request.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	order, err := h.orders.GetByID(r.Context(), req.OrderID)
	if err != nil {
		h.logger.Error("failed to get order for payment", "error", err, "order_id", req.OrderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil || order.BuyerID != userID {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusRejected {
		h.writeError(w, http.StatusUnprocessableEntity, "order is no longer payable")
		return
	}

	payment := &domain.Payment{
		OrderID:        order.ID,
		UserID:         userID,
		Amount:         order.TotalAmount,
		Currency:       h.currency,
		Method:         req.Method,
		MobileNumber:   req.MobileNumber,
		MobileProvider: req.MobileProvider,
		CardLast4:      req.CardLast4,
		CardBrand:      req.CardBrand,
	}

	if err := h.repo.Create(r.Context(), payment); err != nil {
		if errors.Is(err, ErrPaymentExists) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to create payment", "error", err, "order_id", order.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.metrics.PaymentCreated(r.Context(), string(req.Method))
	h.logger.Info("payment created",
		"payment_id", payment.PaymentID, "order_id", order.ID, "method", req.Method, "amount", payment.Amount)
	h.writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	payments, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list payments", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, payments)
}

// HandleComplete is the provider success callback. It settles the payment
// only; the order's own lifecycle is untouched.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.repo.Complete, "completed")
}

// HandleFail is the provider failure callback.
func (h *Handler) HandleFail(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.repo.Fail, "failed")
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (*domain.Payment, error), outcome string) {
	paymentID := r.PathValue("id")
	if paymentID == "" {
		h.writeError(w, http.StatusBadRequest, "missing payment id")
		return
	}

	payment, err := apply(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to settle payment", "error", err, "payment_id", paymentID, "outcome", outcome)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if payment == nil {
		h.writeError(w, http.StatusNotFound, "payment not found")
		return
	}

	h.logger.Info("payment settled", "payment_id", paymentID, "outcome", outcome)
	h.writeJSON(w, http.StatusOK, payment)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return "", false
	}
	return userID, true
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
