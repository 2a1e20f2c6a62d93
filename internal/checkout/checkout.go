// Package checkout converts a mutable cart into an immutable order. The
// conversion is all-or-nothing: validation runs before anything is touched,
// and any failure after stock reservation puts the reserved quantities back
// and leaves the cart as it was.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betteragri/marketplace/internal/domain"
	"github.com/betteragri/marketplace/internal/telemetry"
)

var ErrEmptyCart = errors.New("cart is empty")

type ShippingInfo struct {
	Address string `json:"shipping_address"`
	City    string `json:"shipping_city"`
	Phone   string `json:"shipping_phone"`
	Notes   string `json:"notes,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the field-level problems of one request.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid shipping info: " + strings.Join(names, ", ")
}

// Validate checks the mandatory shipping fields. Notes are optional.
func (s ShippingInfo) Validate() *ValidationError {
	var fields []FieldError
	if strings.TrimSpace(s.Address) == "" {
		fields = append(fields, FieldError{Field: "shipping_address", Message: "address is required"})
	}
	if strings.TrimSpace(s.City) == "" {
		fields = append(fields, FieldError{Field: "shipping_city", Message: "city is required"})
	}
	if strings.TrimSpace(s.Phone) == "" {
		fields = append(fields, FieldError{Field: "shipping_phone", Message: "phone is required"})
	}
	if fields == nil {
		return nil
	}
	return &ValidationError{Fields: fields}
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type StockReserver interface {
	Reserve(ctx context.Context, productID string, quantity decimal.Decimal) error
	Release(ctx context.Context, productID string, quantity decimal.Decimal) error
}

type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Service struct {
	carts    CartStore
	stock    StockReserver
	orders   OrderCreator
	producer EventPublisher
	metrics  *telemetry.OrderMetrics
	logger   *slog.Logger
}

func NewService(carts CartStore, stock StockReserver, orders OrderCreator, producer EventPublisher, metrics *telemetry.OrderMetrics, logger *slog.Logger) *Service {
	return &Service{
		carts:    carts,
		stock:    stock,
		orders:   orders,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// Checkout snapshots the user's cart into a new pending order. Mandatory
// field checks and the empty-cart check run before any stock or order call.
// On success the cart is cleared and the order is the caller's handle for
// the payment step; on failure the cart is intact and no order exists.
func (s *Service) Checkout(ctx context.Context, userID string, info ShippingInfo) (*domain.Order, error) {
	if verr := info.Validate(); verr != nil {
		s.metrics.CheckoutRejected(ctx, "invalid_shipping")
		return nil, verr
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		s.metrics.CheckoutRejected(ctx, "empty_cart")
		return nil, ErrEmptyCart
	}

	now := time.Now().UTC()
	order := &domain.Order{
		OrderNumber:     domain.NewOrderNumber(now),
		BuyerID:         userID,
		Status:          domain.OrderStatusPending,
		ShippingAddress: info.Address,
		ShippingCity:    info.City,
		ShippingPhone:   info.Phone,
		Notes:           info.Notes,
		OrderedAt:       now,
	}

	total := decimal.Zero
	for _, item := range cart.Items {
		lineTotal := item.TotalPrice()
		order.Items = append(order.Items, domain.OrderItem{
			Product: domain.ProductSnapshot{
				ID:       item.ProductID,
				Name:     item.ProductName,
				Unit:     item.Unit,
				FarmerID: item.FarmerID,
			},
			FarmerID:   item.FarmerID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	order.TotalAmount = total

	reserved, err := s.reserveAll(ctx, cart.Items)
	if err != nil {
		s.releaseAll(ctx, reserved)
		s.metrics.CheckoutRejected(ctx, "insufficient_stock")
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseAll(ctx, reserved)
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The order exists; a cart that fails to clear is stale data, not a
	// reason to fail the checkout.
	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Error("failed to clear cart after checkout", "error", err, "user_id", userID)
	}

	if s.producer != nil {
		event := domain.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			BuyerID:     order.BuyerID,
			Items:       order.Items,
			Timestamp:   order.OrderedAt,
		}
		if err := s.producer.Publish(ctx, order.ID, event); err != nil {
			s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	s.metrics.OrderCreated(ctx)
	s.logger.Info("order created",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"buyer_id", userID, "total_amount", order.TotalAmount)

	return order, nil
}

func (s *Service) reserveAll(ctx context.Context, items []domain.CartItem) ([]domain.CartItem, error) {
	var reserved []domain.CartItem
	for _, item := range items {
		if err := s.stock.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			return reserved, fmt.Errorf("reserve %s: %w", item.ProductName, err)
		}
		reserved = append(reserved, item)
	}
	return reserved, nil
}

func (s *Service) releaseAll(ctx context.Context, reserved []domain.CartItem) {
	for _, item := range reserved {
		if err := s.stock.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("failed to release reserved stock",
				"error", err, "product_id", item.ProductID)
		}
	}
}
