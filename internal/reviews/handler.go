package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/betteragri/marketplace/internal/domain"
	"github.com/betteragri/marketplace/internal/eligibility"
	"github.com/betteragri/marketplace/internal/telemetry"
)

// OrderGetter loads the order a review targets. Backed by the orders
// repository in production.
type OrderGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// ReviewStore is the persistence surface the handler needs, satisfied by
// *ReviewRepository.
type ReviewStore interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByOrderAndReviewer(ctx context.Context, orderID, reviewerID string) ([]domain.Review, error)
	ListByReviewer(ctx context.Context, reviewerID string) ([]domain.Review, error)
	ListByFarmer(ctx context.Context, farmerID string) ([]domain.Review, error)
	SummaryByFarmer(ctx context.Context, farmerID string) (*FarmerSummary, error)
}

type Handler struct {
	repo    ReviewStore
	orders  OrderGetter
	metrics *telemetry.OrderMetrics
	logger  *slog.Logger
}

func NewHandler(repo ReviewStore, orders OrderGetter, metrics *telemetry.OrderMetrics, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, orders: orders, metrics: metrics, logger: logger}
}

type createReviewRequest struct {
	OrderID              string `json:"order_id"`
	FarmerID             string `json:"farmer_id"`
	Rating               int    `json:"rating"`
	CommunicationRating  int    `json:"communication_rating"`
	ProductQualityRating int    `json:"product_quality_rating"`
	DeliveryRating       int    `json:"delivery_rating"`
	Comment              string `json:"comment"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OrderID == "" || req.FarmerID == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "order_id and farmer_id are required")
		return
	}
	for _, rating := range []int{req.Rating, req.CommunicationRating, req.ProductQualityRating, req.DeliveryRating} {
		if !domain.ValidRating(rating) {
			h.writeError(w, http.StatusUnprocessableEntity, "ratings must be between 1 and 5")
			return
		}
	}

	order, err := h.orders.GetByID(r.Context(), req.OrderID)
	if err != nil {
		h.logger.Error("failed to get order for review", "error", err, "order_id", req.OrderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil || order.BuyerID != userID {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	existing, err := h.repo.ListByOrderAndReviewer(r.Context(), order.ID, userID)
	if err != nil {
		h.logger.Error("failed to load existing reviews", "error", err, "order_id", order.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ledger := eligibility.NewLedger(existing)
	if !eligibility.CanReview(*order, req.FarmerID, ledger) {
		if order.Status != domain.OrderStatusDelivered {
			h.writeError(w, http.StatusUnprocessableEntity, "only delivered orders can be reviewed")
			return
		}
		if ledger.HasReviewed(order.ID, req.FarmerID) {
			h.writeError(w, http.StatusConflict, ErrDuplicateReview.Error())
			return
		}
		h.writeError(w, http.StatusUnprocessableEntity, "farmer has no items in this order")
		return
	}

	review := &domain.Review{
		OrderID:              order.ID,
		FarmerID:             req.FarmerID,
		ReviewerID:           userID,
		Rating:               req.Rating,
		CommunicationRating:  req.CommunicationRating,
		ProductQualityRating: req.ProductQualityRating,
		DeliveryRating:       req.DeliveryRating,
		Comment:              req.Comment,
	}

	if err := h.repo.Create(r.Context(), review); err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to create review", "error", err, "order_id", order.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.metrics.ReviewCreated(r.Context())
	h.logger.Info("review created",
		"review_id", review.ID, "order_id", order.ID, "farmer_id", req.FarmerID, "reviewer_id", userID)
	h.writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	reviews, err := h.repo.ListByReviewer(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list reviews", "error", err, "reviewer_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, reviews)
}

// HandleReviewableFarmers lists the farmers on the order the caller can
// still review. Empty unless the order is delivered.
func (h *Handler) HandleReviewableFarmers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	orderID := r.PathValue("id")
	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil || order.BuyerID != userID {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	existing, err := h.repo.ListByOrderAndReviewer(r.Context(), order.ID, userID)
	if err != nil {
		h.logger.Error("failed to load existing reviews", "error", err, "order_id", order.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	farmers := eligibility.ReviewableFarmers(*order, eligibility.NewLedger(existing))
	if farmers == nil {
		farmers = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"order_id": order.ID,
		"farmers":  farmers,
	})
}

// HandleFarmerReviews serves a farmer's reviews with the profile aggregate.
// Public data, no visibility filter.
func (h *Handler) HandleFarmerReviews(w http.ResponseWriter, r *http.Request) {
	farmerID := r.PathValue("id")
	if farmerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing farmer id")
		return
	}

	reviews, err := h.repo.ListByFarmer(r.Context(), farmerID)
	if err != nil {
		h.logger.Error("failed to list farmer reviews", "error", err, "farmer_id", farmerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	summary, err := h.repo.SummaryByFarmer(r.Context(), farmerID)
	if err != nil {
		h.logger.Error("failed to summarize farmer reviews", "error", err, "farmer_id", farmerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"reviews": reviews,
	})
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
