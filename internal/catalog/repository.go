package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/betteragri/marketplace/internal/domain"
)

var ErrInsufficientQuantity = errors.New("insufficient quantity available")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, farmer_id, name, unit, price_per_unit, quantity_available, quantity_reserved, status, created_at
		FROM products
		WHERE status = 'active'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.FarmerID, &p.Name, &p.Unit, &p.PricePerUnit,
			&p.Available, &p.Reserved, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, farmer_id, name, unit, price_per_unit, quantity_available, quantity_reserved, status, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.FarmerID, &p.Name, &p.Unit, &p.PricePerUnit,
		&p.Available, &p.Reserved, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}

// Reserve moves quantity from available to reserved, failing with
// ErrInsufficientQuantity when not enough is available. The guard is in the
// WHERE clause so concurrent reservations cannot oversell.
func (r *Repository) Reserve(ctx context.Context, productID string, quantity decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET quantity_available = quantity_available - $2, quantity_reserved = quantity_reserved + $2
		WHERE id = $1 AND quantity_available >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientQuantity
	}

	return nil
}

// Release returns previously reserved quantity, after a cancellation or
// rejection.
func (r *Repository) Release(ctx context.Context, productID string, quantity decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET quantity_available = quantity_available + $2, quantity_reserved = quantity_reserved - $2
		WHERE id = $1 AND quantity_reserved >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return errors.New("insufficient reserved quantity to release")
	}

	return nil
}
