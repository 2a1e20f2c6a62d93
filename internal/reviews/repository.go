// Package reviews persists and serves the post-delivery farmer reviews. A
// buyer reviews each farmer's portion of a delivered order at most once;
// the database enforces the pair uniqueness that the eligibility checks
// assume.
package reviews

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/betteragri/marketplace/internal/domain"
)

var ErrDuplicateReview = errors.New("review already exists for this farmer and order")

type reviewRow struct {
	ID                   string    `db:"id"`
	OrderID              string    `db:"order_id"`
	FarmerID             string    `db:"farmer_id"`
	ReviewerID           string    `db:"reviewer_id"`
	Rating               int       `db:"rating"`
	CommunicationRating  int       `db:"communication_rating"`
	ProductQualityRating int       `db:"product_quality_rating"`
	DeliveryRating       int       `db:"delivery_rating"`
	Comment              string    `db:"comment"`
	CreatedAt            time.Time `db:"created_at"`
}

func (r reviewRow) toDomain() domain.Review {
	return domain.Review(r)
}

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts the review. The unique index on (order_id, farmer_id,
// reviewer_id) turns a concurrent double submit into ErrDuplicateReview.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	review.ID = uuid.New().String()
	review.CreatedAt = time.Now().UTC()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO reviews (id, order_id, farmer_id, reviewer_id, rating,
			communication_rating, product_quality_rating, delivery_rating, comment, created_at)
		VALUES (:id, :order_id, :farmer_id, :reviewer_id, :rating,
			:communication_rating, :product_quality_rating, :delivery_rating, :comment, :created_at)
	`, reviewRow(*review))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return err
	}

	return nil
}

// ListByOrderAndReviewer returns the reviewer's reviews on one order, the
// input for the duplicate-check ledger.
func (r *ReviewRepository) ListByOrderAndReviewer(ctx context.Context, orderID, reviewerID string) ([]domain.Review, error) {
	return r.list(ctx, `
		SELECT id, order_id, farmer_id, reviewer_id, rating, communication_rating,
			product_quality_rating, delivery_rating, comment, created_at
		FROM reviews
		WHERE order_id = $1 AND reviewer_id = $2
		ORDER BY created_at
	`, orderID, reviewerID)
}

func (r *ReviewRepository) ListByReviewer(ctx context.Context, reviewerID string) ([]domain.Review, error) {
	return r.list(ctx, `
		SELECT id, order_id, farmer_id, reviewer_id, rating, communication_rating,
			product_quality_rating, delivery_rating, comment, created_at
		FROM reviews
		WHERE reviewer_id = $1
		ORDER BY created_at DESC
	`, reviewerID)
}

func (r *ReviewRepository) ListByFarmer(ctx context.Context, farmerID string) ([]domain.Review, error) {
	return r.list(ctx, `
		SELECT id, order_id, farmer_id, reviewer_id, rating, communication_rating,
			product_quality_rating, delivery_rating, comment, created_at
		FROM reviews
		WHERE farmer_id = $1
		ORDER BY created_at DESC
	`, farmerID)
}

func (r *ReviewRepository) list(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	reviews := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toDomain())
	}
	return reviews, nil
}

// FarmerSummary is the aggregate shown on a farmer's public profile.
type FarmerSummary struct {
	FarmerID          string  `json:"farmer_id" db:"farmer_id"`
	ReviewCount       int     `json:"review_count" db:"review_count"`
	AverageRating     float64 `json:"average_rating" db:"average_rating"`
	AvgCommunication  float64 `json:"average_communication" db:"avg_communication"`
	AvgProductQuality float64 `json:"average_product_quality" db:"avg_product_quality"`
	AvgDelivery       float64 `json:"average_delivery" db:"avg_delivery"`
}

func (r *ReviewRepository) SummaryByFarmer(ctx context.Context, farmerID string) (*FarmerSummary, error) {
	summary := &FarmerSummary{FarmerID: farmerID}
	err := r.db.GetContext(ctx, summary, `
		SELECT farmer_id,
			COUNT(*) AS review_count,
			ROUND(AVG(rating), 2) AS average_rating,
			ROUND(AVG(communication_rating), 2) AS avg_communication,
			ROUND(AVG(product_quality_rating), 2) AS avg_product_quality,
			ROUND(AVG(delivery_rating), 2) AS avg_delivery
		FROM reviews
		WHERE farmer_id = $1
		GROUP BY farmer_id
	`, farmerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &FarmerSummary{FarmerID: farmerID}, nil
		}
		return nil, err
	}
	return summary, nil
}
