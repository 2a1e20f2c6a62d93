package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// ProductSnapshot is the product state captured into an order item at
// checkout time. Live product rows may change afterwards; the snapshot
// never does.
type ProductSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	FarmerID string `json:"farmer_id"`
}

type OrderItem struct {
	ID         string          `json:"id"`
	Product    ProductSnapshot `json:"product"`
	FarmerID   string          `json:"farmer_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// BelongsToFarmer matches an item against a farmer by the item's own
// farmer reference or the one carried in the product snapshot.
func (i OrderItem) BelongsToFarmer(farmerID string) bool {
	if farmerID == "" {
		return false
	}
	return i.FarmerID == farmerID || i.Product.FarmerID == farmerID
}

type Order struct {
	ID              string      `json:"id"`
	OrderNumber     string      `json:"order_number"`
	BuyerID         string      `json:"buyer_id"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items"`
	ShippingAddress string      `json:"shipping_address"`
	ShippingCity    string      `json:"shipping_city"`
	ShippingPhone   string      `json:"shipping_phone"`
	Notes           string      `json:"notes,omitempty"`

	TotalAmount decimal.Decimal `json:"total_amount"`

	RejectionReason string `json:"rejection_reason,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	DeliveryCompany string `json:"delivery_company,omitempty"`

	OrderedAt   time.Time  `json:"ordered_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// NewOrderNumber builds a human-readable order reference, e.g. ORD20260831493021.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%s%06d", now.Format("20060102"), rand.Intn(1000000))
}
