package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusSoldOut  ProductStatus = "sold_out"
)

// Product is a farmer's listing. Quantities are decimal because produce is
// sold by weight (kg) as well as by piece.
type Product struct {
	ID           string          `json:"id"`
	FarmerID     string          `json:"farmer_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Available    decimal.Decimal `json:"quantity_available"`
	Reserved     decimal.Decimal `json:"quantity_reserved"`
	Status       ProductStatus   `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Unit:     p.Unit,
		FarmerID: p.FarmerID,
	}
}
