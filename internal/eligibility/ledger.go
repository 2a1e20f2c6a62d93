package eligibility

import "github.com/betteragri/marketplace/internal/domain"

// Ledger indexes the current user's own reviews for duplicate checks. It
// only ever holds the reviewer's reviews; nobody else's are needed to
// decide reviewability.
type Ledger struct {
	reviewed map[ledgerKey]struct{}
}

type ledgerKey struct {
	orderID  string
	farmerID string
}

func NewLedger(reviews []domain.Review) *Ledger {
	l := &Ledger{reviewed: make(map[ledgerKey]struct{}, len(reviews))}
	for _, r := range reviews {
		l.reviewed[ledgerKey{orderID: r.OrderID, farmerID: r.FarmerID}] = struct{}{}
	}
	return l
}

// HasReviewed reports whether a review already exists for the (order,
// farmer) pair.
func (l *Ledger) HasReviewed(orderID, farmerID string) bool {
	_, ok := l.reviewed[ledgerKey{orderID: orderID, farmerID: farmerID}]
	return ok
}

// Record adds a freshly submitted review so dependent eligibility checks
// see it without a refetch.
func (l *Ledger) Record(review domain.Review) {
	l.reviewed[ledgerKey{orderID: review.OrderID, farmerID: review.FarmerID}] = struct{}{}
}
