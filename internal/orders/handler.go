package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betteragri/marketplace/internal/domain"
	"github.com/betteragri/marketplace/internal/eligibility"
	"github.com/betteragri/marketplace/internal/telemetry"
)

// StockReleaser returns reserved product quantity when an order terminates
// in cancelled or rejected.
type StockReleaser interface {
	Release(ctx context.Context, productID string, quantity decimal.Decimal) error
}

// EventPublisher mirrors messaging.Producer; nil-able in tests and when
// Kafka is not configured.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	repo     *OrderRepository
	stock    StockReleaser
	producer EventPublisher
	metrics  *telemetry.OrderMetrics
	logger   *slog.Logger
}

func NewHandler(repo *OrderRepository, stock StockReleaser, producer EventPublisher, metrics *telemetry.OrderMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		stock:    stock,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}

	var (
		orders []domain.Order
		err    error
	)
	switch role {
	case domain.RoleFarmer:
		orders, err = h.repo.ListByFarmer(r.Context(), userID)
	default:
		orders, err = h.repo.ListByBuyer(r.Context(), userID)
	}
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", userID, "role", role)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_id", userID, "role", role, "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}

	order, ok := h.loadVisibleOrder(w, r, userID, role)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type transitionRequest struct {
	Action          domain.Action `json:"action"`
	Reason          string        `json:"reason,omitempty"`
	TrackingNumber  string        `json:"tracking_number,omitempty"`
	DeliveryCompany string        `json:"delivery_company,omitempty"`
}

func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Action.IsValid() {
		h.writeError(w, http.StatusUnprocessableEntity, "unknown action")
		return
	}
	if req.Action.RequiresReason() && req.Reason == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "reason is required to reject an order")
		return
	}

	order, ok := h.loadVisibleOrder(w, r, userID, role)
	if !ok {
		return
	}

	// Buyers act on their own orders only; farmers on orders holding their
	// items only. Visibility filtering above already guarantees the latter,
	// the role check below pins the action to the right side.
	if req.Action.ActorRole() != role {
		h.writeError(w, http.StatusForbidden, "action not allowed for your role")
		return
	}

	updated, err := h.repo.Transition(r.Context(), order.ID, TransitionParams{
		Action:          req.Action,
		Role:            role,
		Reason:          req.Reason,
		TrackingNumber:  req.TrackingNumber,
		DeliveryCompany: req.DeliveryCompany,
	})
	if err != nil {
		h.metrics.Transition(r.Context(), string(req.Action), false)
		if errors.Is(err, domain.ErrIllegalTransition) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		if errors.Is(err, domain.ErrWrongRole) {
			h.writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.logger.Error("failed to transition order", "error", err, "order_id", order.ID, "action", req.Action)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if updated == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.metrics.Transition(r.Context(), string(req.Action), true)

	if updated.Status == domain.OrderStatusCancelled || updated.Status == domain.OrderStatusRejected {
		h.releaseStock(r.Context(), updated)
	}

	h.publishStatusChange(r.Context(), order.Status, updated, req.Action, req.Reason)

	h.logger.Info("order transitioned",
		"order_id", updated.ID, "action", req.Action, "from", order.Status, "to", updated.Status)
	h.writeJSON(w, http.StatusOK, updated)
}

// HandleFarmerPortion returns only the calling farmer's slice of a
// multi-farmer order: their line items, their total, and the actions
// currently open to them.
func (h *Handler) HandleFarmerPortion(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}
	if role != domain.RoleFarmer {
		h.writeError(w, http.StatusForbidden, "farmer access only")
		return
	}

	order, ok := h.loadVisibleOrder(w, r, userID, role)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
		"items":        eligibility.FarmerItems(*order, userID),
		"farmer_total": eligibility.FarmerTotal(*order, userID),
		"actions":      eligibility.AvailableFarmerActions(*order, userID),
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}

	stats, err := h.repo.Stats(r.Context(), userID, role)
	if err != nil {
		h.logger.Error("failed to compute order stats", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// loadVisibleOrder fetches the order and enforces visibility: buyers see
// their own orders, farmers see orders containing their items. Anything
// else is reported as not found rather than forbidden, so order ids do not
// leak across accounts.
func (h *Handler) loadVisibleOrder(w http.ResponseWriter, r *http.Request, userID string, role domain.Role) (*domain.Order, bool) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return nil, false
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return nil, false
	}

	visible := false
	switch role {
	case domain.RoleBuyer:
		visible = order.BuyerID == userID
	case domain.RoleFarmer:
		visible = len(eligibility.FarmerItems(*order, userID)) > 0
	}
	if !visible {
		h.writeError(w, http.StatusNotFound, "order not found")
		return nil, false
	}

	return order, true
}

func (h *Handler) releaseStock(ctx context.Context, order *domain.Order) {
	if h.stock == nil {
		return
	}
	for _, item := range order.Items {
		if err := h.stock.Release(ctx, item.Product.ID, item.Quantity); err != nil {
			h.logger.Error("failed to release reserved stock",
				"error", err, "order_id", order.ID, "product_id", item.Product.ID)
		}
	}
}

func (h *Handler) publishStatusChange(ctx context.Context, from domain.OrderStatus, order *domain.Order, action domain.Action, reason string) {
	if h.producer == nil {
		return
	}

	event := domain.OrderStatusChangedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		FarmerIDs:   order.ItemFarmerIDs(),
		Action:      action,
		From:        from,
		To:          order.Status,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	}
	if err := h.producer.Publish(ctx, order.ID, event); err != nil {
		h.logger.Error("failed to publish status change event", "error", err, "order_id", order.ID)
	}
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (string, domain.Role, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return "", "", false
	}

	role := domain.Role(r.Header.Get("X-User-Role"))
	if role == "" {
		role = domain.RoleBuyer
	}
	if !role.IsValid() {
		h.writeError(w, http.StatusBadRequest, "unknown role")
		return "", "", false
	}

	return userID, role, true
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
