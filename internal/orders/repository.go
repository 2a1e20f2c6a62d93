package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/betteragri/marketplace/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, buyer_id, status, shipping_address, shipping_city,
			shipping_phone, notes, total_amount, ordered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, order.ID, order.OrderNumber, order.BuyerID, order.Status, order.ShippingAddress,
		order.ShippingCity, order.ShippingPhone, order.Notes, order.TotalAmount, order.OrderedAt)
	if err != nil {
		return err
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New().String()
		item := order.Items[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, unit,
				product_farmer_id, farmer_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, item.ID, order.ID, item.Product.ID, item.Product.Name, item.Product.Unit,
			item.Product.FarmerID, item.FarmerID, item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_number, buyer_id, status, shipping_address, shipping_city,
			shipping_phone, notes, total_amount, rejection_reason, tracking_number,
			delivery_company, ordered_at, confirmed_at, shipped_at, delivered_at, cancelled_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.OrderNumber, &order.BuyerID, &order.Status,
		&order.ShippingAddress, &order.ShippingCity, &order.ShippingPhone, &order.Notes,
		&order.TotalAmount, &order.RejectionReason, &order.TrackingNumber, &order.DeliveryCompany,
		&order.OrderedAt, &order.ConfirmedAt, &order.ShippedAt, &order.DeliveredAt, &order.CancelledAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, unit, product_farmer_id, farmer_id,
			quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.Product.ID, &item.Product.Name, &item.Product.Unit,
			&item.Product.FarmerID, &item.FarmerID, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByBuyer returns the buyer's orders, most recent first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, order_number, buyer_id, status, shipping_address, shipping_city,
			shipping_phone, notes, total_amount, rejection_reason, tracking_number,
			delivery_company, ordered_at, confirmed_at, shipped_at, delivered_at, cancelled_at
		FROM orders
		WHERE buyer_id = $1
		ORDER BY ordered_at DESC
	`, buyerID)
}

// ListByFarmer returns only orders containing at least one of the farmer's
// line items. Orders without a matched item never appear in a farmer's list.
func (r *OrderRepository) ListByFarmer(ctx context.Context, farmerID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT DISTINCT o.id, o.order_number, o.buyer_id, o.status, o.shipping_address,
			o.shipping_city, o.shipping_phone, o.notes, o.total_amount, o.rejection_reason,
			o.tracking_number, o.delivery_company, o.ordered_at, o.confirmed_at, o.shipped_at,
			o.delivered_at, o.cancelled_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.farmer_id = $1 OR oi.product_farmer_id = $1
		ORDER BY o.ordered_at DESC
	`, farmerID)
}

func (r *OrderRepository) list(ctx context.Context, query string, arg any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.BuyerID, &order.Status,
			&order.ShippingAddress, &order.ShippingCity, &order.ShippingPhone, &order.Notes,
			&order.TotalAmount, &order.RejectionReason, &order.TrackingNumber, &order.DeliveryCompany,
			&order.OrderedAt, &order.ConfirmedAt, &order.ShippedAt, &order.DeliveredAt, &order.CancelledAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, product_name, unit, product_farmer_id, farmer_id,
			quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ID, &item.Product.ID, &item.Product.Name,
			&item.Product.Unit, &item.Product.FarmerID, &item.FarmerID,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// TransitionParams carries everything a status change may need. Reason is
// mandatory for reject; tracking fields are captured at mark_shipped.
type TransitionParams struct {
	Action          domain.Action
	Role            domain.Role
	Reason          string
	TrackingNumber  string
	DeliveryCompany string
}

// Transition applies the lifecycle table to the order inside a row-locked
// transaction, so two racing actors cannot both win. The domain table is
// consulted against the status read under the lock, not the caller's
// possibly stale snapshot.
func (r *OrderRepository) Transition(ctx context.Context, id string, p TransitionParams) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	next, err := domain.Transition(current, p.Action, p.Role)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch next {
	case domain.OrderStatusConfirmed:
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, confirmed_at = $2, updated_at = $2 WHERE id = $3
		`, next, now, id)
	case domain.OrderStatusRejected:
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, rejection_reason = $2, cancelled_at = $3, updated_at = $3 WHERE id = $4
		`, next, p.Reason, now, id)
	case domain.OrderStatusCancelled:
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, cancelled_at = $2, updated_at = $2 WHERE id = $3
		`, next, now, id)
	case domain.OrderStatusShipped:
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, tracking_number = $2, delivery_company = $3,
				shipped_at = $4, updated_at = $4 WHERE id = $5
		`, next, p.TrackingNumber, p.DeliveryCompany, now, id)
	case domain.OrderStatusDelivered:
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, delivered_at = $2, updated_at = $2 WHERE id = $3
		`, next, now, id)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
		`, next, now, id)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// StatusCounts returns the number of the user's orders per status plus the
// delivered total, for the dashboard stats card.
type OrderStats struct {
	Total          int                        `json:"total_orders"`
	ByStatus       map[domain.OrderStatus]int `json:"by_status"`
	DeliveredTotal string                     `json:"delivered_total"`
}

func (r *OrderRepository) Stats(ctx context.Context, userID string, role domain.Role) (*OrderStats, error) {
	var query string
	switch role {
	case domain.RoleFarmer:
		query = `
			SELECT o.status, COUNT(DISTINCT o.id),
				COALESCE(SUM(o.total_amount) FILTER (WHERE o.status = 'delivered'), 0)
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE oi.farmer_id = $1 OR oi.product_farmer_id = $1
			GROUP BY o.status
		`
	default:
		query = `
			SELECT status, COUNT(*),
				COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered'), 0)
			FROM orders
			WHERE buyer_id = $1
			GROUP BY status
		`
	}

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stats := &OrderStats{ByStatus: make(map[domain.OrderStatus]int), DeliveredTotal: "0"}
	for rows.Next() {
		var status domain.OrderStatus
		var count int
		var deliveredTotal string
		if err := rows.Scan(&status, &count, &deliveredTotal); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
		if status == domain.OrderStatusDelivered {
			stats.DeliveredTotal = deliveredTotal
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
