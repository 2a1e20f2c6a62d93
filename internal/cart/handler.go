package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betteragri/marketplace/internal/domain"
)

// ProductGetter resolves live product state at the moment an item is added;
// the resolved price becomes the cart item's snapshot price.
type ProductGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Handler struct {
	store    *Store
	products ProductGetter
	logger   *slog.Logger
}

func NewHandler(store *Store, products ProductGetter, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		products: products,
		logger:   logger,
	}
}

type cartResponse struct {
	*domain.Cart
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func newCartResponse(cart *domain.Cart) cartResponse {
	return cartResponse{
		Cart:       cart,
		TotalItems: cart.TotalItems(),
		Subtotal:   cart.Subtotal(),
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	cart, err := h.store.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, newCartResponse(cart))
}

type addItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "product_id is required")
		return
	}
	if req.Quantity.LessThan(decimal.NewFromInt(1)) {
		h.writeError(w, http.StatusUnprocessableEntity, "quantity must be at least 1")
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	cart, err := h.store.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if existing := cart.Item(req.ProductID); existing != nil {
		existing.Quantity = existing.Quantity.Add(req.Quantity)
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			FarmerID:    product.FarmerID,
			Unit:        product.Unit,
			UnitPrice:   product.PricePerUnit,
			Quantity:    req.Quantity,
			AddedAt:     time.Now().UTC(),
		})
	}

	if err := h.store.Save(r.Context(), cart); err != nil {
		h.logger.Error("failed to save cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item added", "user_id", userID, "product_id", req.ProductID)
	h.writeJSON(w, http.StatusOK, newCartResponse(cart))
}

type updateItemRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// HandleUpdateItem sets an item's quantity. A quantity of zero or less
// removes the item.
func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.store.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	item := cart.Item(productID)
	if item == nil {
		h.writeError(w, http.StatusNotFound, "item not in cart")
		return
	}

	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		cart.RemoveItem(productID)
	} else {
		item.Quantity = req.Quantity
	}

	if err := h.store.Save(r.Context(), cart); err != nil {
		h.logger.Error("failed to save cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item updated", "user_id", userID, "product_id", productID)
	h.writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	cart, err := h.store.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !cart.RemoveItem(productID) {
		h.writeError(w, http.StatusNotFound, "item not in cart")
		return
	}

	if err := h.store.Save(r.Context(), cart); err != nil {
		h.logger.Error("failed to save cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item removed", "user_id", userID, "product_id", productID)
	h.writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	if err := h.store.Clear(r.Context(), userID); err != nil {
		h.logger.Error("failed to clear cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart cleared", "user_id", userID)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
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
