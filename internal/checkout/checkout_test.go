package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betteragri/marketplace/internal/domain"
)

type fakeCarts struct {
	cart    *domain.Cart
	gets    int
	cleared bool
}

func (f *fakeCarts) Get(_ context.Context, _ string) (*domain.Cart, error) {
	f.gets++
	return f.cart, nil
}

func (f *fakeCarts) Clear(_ context.Context, _ string) error {
	f.cleared = true
	return nil
}

type fakeStock struct {
	failOn   string
	reserved []string
	released []string
}

func (f *fakeStock) Reserve(_ context.Context, productID string, _ decimal.Decimal) error {
	if productID == f.failOn {
		return errors.New("insufficient quantity available")
	}
	f.reserved = append(f.reserved, productID)
	return nil
}

func (f *fakeStock) Release(_ context.Context, productID string, _ decimal.Decimal) error {
	f.released = append(f.released, productID)
	return nil
}

type fakeOrders struct {
	created *domain.Order
	err     error
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order) error {
	if f.err != nil {
		return f.err
	}
	order.ID = "order-1"
	f.created = order
	return nil
}

func testCart() *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		UserID: "buyer-1",
		Items: []domain.CartItem{
			{
				ProductID:   "prod-1",
				ProductName: "Tomates",
				FarmerID:    "farmer-1",
				Unit:        "kg",
				UnitPrice:   decimal.NewFromInt(450),
				Quantity:    decimal.NewFromInt(2),
				AddedAt:     now,
			},
			{
				ProductID:   "prod-2",
				ProductName: "Carottes",
				FarmerID:    "farmer-2",
				Unit:        "kg",
				UnitPrice:   decimal.NewFromInt(300),
				Quantity:    decimal.NewFromInt(1),
				AddedAt:     now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func validShipping() ShippingInfo {
	return ShippingInfo{
		Address: "Ilot K 123",
		City:    "Nouakchott",
		Phone:   "+22240000000",
	}
}

func newTestService(carts *fakeCarts, stock *fakeStock, orders *fakeOrders) *Service {
	return NewService(carts, stock, orders, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCheckout(t *testing.T) {
	carts := &fakeCarts{cart: testCart()}
	stock := &fakeStock{}
	orders := &fakeOrders{}
	svc := newTestService(carts, stock, orders)

	order, err := svc.Checkout(context.Background(), "buyer-1", validShipping())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1200)),
		"total = sum of line totals, got %s", order.TotalAmount)
	assert.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].TotalPrice.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, "farmer-1", order.Items[0].Product.FarmerID, "farmer reference kept in snapshot")
	assert.NotEmpty(t, order.OrderNumber)

	assert.Equal(t, []string{"prod-1", "prod-2"}, stock.reserved)
	assert.Empty(t, stock.released)
	assert.True(t, carts.cleared, "cart cleared after successful checkout")
	assert.NotNil(t, orders.created)
}

func TestCheckout_BlankPhone(t *testing.T) {
	carts := &fakeCarts{cart: testCart()}
	stock := &fakeStock{}
	orders := &fakeOrders{}
	svc := newTestService(carts, stock, orders)

	info := validShipping()
	info.Phone = "   "

	_, err := svc.Checkout(context.Background(), "buyer-1", info)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "shipping_phone", verr.Fields[0].Field)

	assert.Zero(t, carts.gets, "validation fails before the cart is even read")
	assert.Empty(t, stock.reserved)
	assert.False(t, carts.cleared)
	assert.Nil(t, orders.created)
}

func TestCheckout_AllFieldsMissing(t *testing.T) {
	svc := newTestService(&fakeCarts{cart: testCart()}, &fakeStock{}, &fakeOrders{})

	_, err := svc.Checkout(context.Background(), "buyer-1", ShippingInfo{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestCheckout_EmptyCart(t *testing.T) {
	carts := &fakeCarts{cart: &domain.Cart{UserID: "buyer-1"}}
	stock := &fakeStock{}
	orders := &fakeOrders{}
	svc := newTestService(carts, stock, orders)

	_, err := svc.Checkout(context.Background(), "buyer-1", validShipping())

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, stock.reserved, "no stock touched for an empty cart")
	assert.Nil(t, orders.created)
	assert.False(t, carts.cleared)
}

func TestCheckout_ReservationFailureReleasesAndKeepsCart(t *testing.T) {
	carts := &fakeCarts{cart: testCart()}
	stock := &fakeStock{failOn: "prod-2"}
	orders := &fakeOrders{}
	svc := newTestService(carts, stock, orders)

	_, err := svc.Checkout(context.Background(), "buyer-1", validShipping())

	require.Error(t, err)
	assert.Equal(t, []string{"prod-1"}, stock.reserved)
	assert.Equal(t, []string{"prod-1"}, stock.released, "earlier reservation compensated")
	assert.Nil(t, orders.created)
	assert.False(t, carts.cleared, "cart untouched on failure")
}

func TestCheckout_OrderCreateFailureReleases(t *testing.T) {
	carts := &fakeCarts{cart: testCart()}
	stock := &fakeStock{}
	orders := &fakeOrders{err: errors.New("db down")}
	svc := newTestService(carts, stock, orders)

	_, err := svc.Checkout(context.Background(), "buyer-1", validShipping())

	require.Error(t, err)
	assert.Equal(t, []string{"prod-1", "prod-2"}, stock.released)
	assert.False(t, carts.cleared)
}
