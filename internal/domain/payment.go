package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodMobileMoney    PaymentMethod = "mobile_money"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodCreditCard, PaymentMethodMobileMoney:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// Payment is attached to an order but carries its own status. Completion is
// a separate signal from the provider; it never advances the order's own
// lifecycle.
type Payment struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Method    PaymentMethod   `json:"method"`
	Status    PaymentStatus   `json:"status"`

	MobileNumber   string `json:"mobile_number,omitempty"`
	MobileProvider string `json:"mobile_provider,omitempty"`
	CardLast4      string `json:"card_last4,omitempty"`
	CardBrand      string `json:"card_brand,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}

// NewPaymentReference builds a human-readable payment reference, e.g. PAY3F2A91BC.
func NewPaymentReference() string {
	return fmt.Sprintf("PAY%s", strings.ToUpper(uuid.New().String()[:8]))
}
