package domain

import "time"

// Review is a buyer's post-delivery rating of one farmer's part of an
// order. At most one review exists per (order, farmer) pair per reviewer;
// reviews are immutable once created.
type Review struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	FarmerID   string `json:"farmer_id"`
	ReviewerID string `json:"reviewer_id"`

	Rating               int `json:"rating"`
	CommunicationRating  int `json:"communication_rating"`
	ProductQualityRating int `json:"product_quality_rating"`
	DeliveryRating       int `json:"delivery_rating"`

	Comment string `json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidRating reports whether r is inside the 1-5 star scale.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
