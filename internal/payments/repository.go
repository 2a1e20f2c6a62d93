// Package payments attaches payment records to orders. A payment has its
// own pending/completed/failed lifecycle driven by provider signals; it
// never advances or blocks the order's status.
package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/betteragri/marketplace/internal/domain"
)

var (
	ErrPaymentExists  = errors.New("order already has a payment")
	ErrAlreadySettled = errors.New("payment is no longer pending")
)

type paymentRow struct {
	ID             string          `db:"id"`
	PaymentID      string          `db:"payment_id"`
	OrderID        string          `db:"order_id"`
	UserID         string          `db:"user_id"`
	Amount         decimal.Decimal `db:"amount"`
	Currency       string          `db:"currency"`
	Method         string          `db:"method"`
	Status         string          `db:"status"`
	MobileNumber   sql.NullString  `db:"mobile_number"`
	MobileProvider sql.NullString  `db:"mobile_provider"`
	CardLast4      sql.NullString  `db:"card_last4"`
	CardBrand      sql.NullString  `db:"card_brand"`
	CreatedAt      time.Time       `db:"created_at"`
	CompletedAt    sql.NullTime    `db:"completed_at"`
	FailedAt       sql.NullTime    `db:"failed_at"`
}

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts the payment in pending status. The unique index on
// order_id makes a second attach attempt fail with ErrPaymentExists.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	payment.ID = uuid.New().String()
	payment.PaymentID = domain.NewPaymentReference()
	payment.Status = domain.PaymentStatusPending
	payment.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, payment_id, order_id, user_id, amount, currency, method, status,
			mobile_number, mobile_provider, card_last4, card_brand, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, payment.ID, payment.PaymentID, payment.OrderID, payment.UserID, payment.Amount,
		payment.Currency, payment.Method, payment.Status,
		nullable(payment.MobileNumber), nullable(payment.MobileProvider),
		nullable(payment.CardLast4), nullable(payment.CardBrand), payment.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrPaymentExists
		}
		return err
	}

	return nil
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var row paymentRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, payment_id, order_id, user_id, amount, currency, method, status,
			mobile_number, mobile_provider, card_last4, card_brand,
			created_at, completed_at, failed_at
		FROM payments
		WHERE payment_id = $1
	`, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	payment := row.toDomain()
	return &payment, nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var row paymentRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, payment_id, order_id, user_id, amount, currency, method, status,
			mobile_number, mobile_provider, card_last4, card_brand,
			created_at, completed_at, failed_at
		FROM payments
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	payment := row.toDomain()
	return &payment, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	var rows []paymentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, payment_id, order_id, user_id, amount, currency, method, status,
			mobile_number, mobile_provider, card_last4, card_brand,
			created_at, completed_at, failed_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toDomain())
	}
	return payments, nil
}

// Complete marks a pending payment completed. A payment that already
// settled either way returns ErrAlreadySettled; the WHERE clause makes
// racing provider callbacks idempotent-safe.
func (r *PaymentRepository) Complete(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return r.settle(ctx, paymentID, domain.PaymentStatusCompleted, "completed_at")
}

// Fail marks a pending payment failed.
func (r *PaymentRepository) Fail(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return r.settle(ctx, paymentID, domain.PaymentStatusFailed, "failed_at")
}

func (r *PaymentRepository) settle(ctx context.Context, paymentID string, status domain.PaymentStatus, tsColumn string) (*domain.Payment, error) {
	var query string
	switch tsColumn {
	case "completed_at":
		query = `UPDATE payments SET status = $1, completed_at = $2 WHERE payment_id = $3 AND status = 'pending'`
	default:
		query = `UPDATE payments SET status = $1, failed_at = $2 WHERE payment_id = $3 AND status = 'pending'`
	}

	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), paymentID)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		existing, err := r.GetByPaymentID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrAlreadySettled
	}

	return r.GetByPaymentID(ctx, paymentID)
}

func (row paymentRow) toDomain() domain.Payment {
	payment := domain.Payment{
		ID:             row.ID,
		PaymentID:      row.PaymentID,
		OrderID:        row.OrderID,
		UserID:         row.UserID,
		Amount:         row.Amount,
		Currency:       row.Currency,
		Method:         domain.PaymentMethod(row.Method),
		Status:         domain.PaymentStatus(row.Status),
		MobileNumber:   row.MobileNumber.String,
		MobileProvider: row.MobileProvider.String,
		CardLast4:      row.CardLast4.String,
		CardBrand:      row.CardBrand.String,
		CreatedAt:      row.CreatedAt,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		payment.CompletedAt = &t
	}
	if row.FailedAt.Valid {
		t := row.FailedAt.Time
		payment.FailedAt = &t
	}
	return payment
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
