package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betteragri/marketplace/internal/domain"
)

type captureServer struct {
	mu   sync.Mutex
	sent []Notification
}

func (c *captureServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notifications/send", func(w http.ResponseWriter, r *http.Request) {
		var n Notification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.sent = append(c.sent, n)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func setupDispatcher(t *testing.T) (*Dispatcher, *captureServer) {
	t.Helper()

	capture := &captureServer{}
	srv := httptest.NewServer(capture.handler())
	t.Cleanup(srv.Close)

	d := NewDispatcher(srv.URL, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return d, capture
}

func byRecipient(sent []Notification) map[string]string {
	out := make(map[string]string, len(sent))
	for _, n := range sent {
		out[n.RecipientID] = n.Type
	}
	return out
}

func TestHandleOrderCreated_FansOutToBuyerAndFarmers(t *testing.T) {
	d, capture := setupDispatcher(t)

	event := domain.OrderCreatedEvent{
		OrderID:     "order-1",
		OrderNumber: "ORD20250115000042",
		BuyerID:     "buyer-1",
		Items: []domain.OrderItem{
			{FarmerID: "farmer-1", Quantity: decimal.NewFromInt(2)},
			{FarmerID: "farmer-2", Quantity: decimal.NewFromInt(1)},
			{FarmerID: "farmer-1", Quantity: decimal.NewFromInt(3)},
		},
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, d.HandleOrderCreated(context.Background(), payload))

	require.Len(t, capture.sent, 3, "buyer plus one per distinct farmer")
	got := byRecipient(capture.sent)
	assert.Equal(t, TypeNewOrder, got["buyer-1"])
	assert.Equal(t, TypeFarmerNewOrder, got["farmer-1"])
	assert.Equal(t, TypeFarmerNewOrder, got["farmer-2"])
}

func TestHandleStatusChanged(t *testing.T) {
	tests := []struct {
		name string
		to   domain.OrderStatus
		want map[string]string
	}{
		{"accepted goes to buyer", domain.OrderStatusConfirmed, map[string]string{"buyer-1": TypeOrderAccepted}},
		{"rejected goes to buyer", domain.OrderStatusRejected, map[string]string{"buyer-1": TypeOrderRejected}},
		{"shipped goes to buyer", domain.OrderStatusShipped, map[string]string{"buyer-1": TypeOrderShipped}},
		{"cancelled goes to farmers", domain.OrderStatusCancelled, map[string]string{
			"farmer-1": TypeOrderCancelled, "farmer-2": TypeOrderCancelled,
		}},
		{"delivered goes to both sides", domain.OrderStatusDelivered, map[string]string{
			"buyer-1": TypeOrderDelivered, "farmer-1": TypeOrderDelivered, "farmer-2": TypeOrderDelivered,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, capture := setupDispatcher(t)

			event := domain.OrderStatusChangedEvent{
				OrderID:     "order-1",
				OrderNumber: "ORD20250115000042",
				BuyerID:     "buyer-1",
				FarmerIDs:   []string{"farmer-1", "farmer-2"},
				To:          tt.to,
				Timestamp:   time.Now().UTC(),
			}
			payload, err := json.Marshal(event)
			require.NoError(t, err)

			require.NoError(t, d.HandleStatusChanged(context.Background(), payload))
			assert.Equal(t, tt.want, byRecipient(capture.sent))
		})
	}
}

func TestHandleStatusChanged_RejectionReasonInBody(t *testing.T) {
	d, capture := setupDispatcher(t)

	event := domain.OrderStatusChangedEvent{
		OrderID:     "order-1",
		OrderNumber: "ORD20250115000042",
		BuyerID:     "buyer-1",
		To:          domain.OrderStatusRejected,
		Reason:      "stock épuisé",
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, d.HandleStatusChanged(context.Background(), payload))
	require.Len(t, capture.sent, 1)
	assert.Contains(t, capture.sent[0].Body, "stock épuisé")
}

func TestHandleOrderCreated_BadPayload(t *testing.T) {
	d, _ := setupDispatcher(t)
	assert.Error(t, d.HandleOrderCreated(context.Background(), []byte("{{{")))
}
