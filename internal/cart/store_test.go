package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betteragri/marketplace/internal/domain"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client), mr
}

func testCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		UserID: userID,
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
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_GetMissingReturnsEmptyCart(t *testing.T) {
	store, _ := setupTestStore(t)

	cart, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", cart.UserID)
	assert.True(t, cart.IsEmpty())
}

func TestStore_SaveAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCart("user-1")))

	cart, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "prod-1", cart.Items[0].ProductID)
	assert.True(t, cart.Subtotal().Equal(decimal.NewFromInt(900)))
}

func TestStore_SaveSetsTTL(t *testing.T) {
	store, mr := setupTestStore(t)

	require.NoError(t, store.Save(context.Background(), testCart("user-1")))

	ttl := mr.TTL(cartKey("user-1"))
	assert.Greater(t, ttl, time.Duration(0), "cart key must expire eventually")
}

func TestStore_GetCorruptPayload(t *testing.T) {
	store, mr := setupTestStore(t)

	data, err := json.Marshal(testCart("user-1"))
	require.NoError(t, err)
	require.NoError(t, mr.Set(cartKey("user-1"), string(data[:10])))

	_, err = store.Get(context.Background(), "user-1")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestStore_Clear(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCart("user-1")))
	assert.True(t, mr.Exists(cartKey("user-1")))

	require.NoError(t, store.Clear(ctx, "user-1"))
	assert.False(t, mr.Exists(cartKey("user-1")))
}

func TestStore_ClearMissingCart(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.NoError(t, store.Clear(context.Background(), "nobody"))
}
