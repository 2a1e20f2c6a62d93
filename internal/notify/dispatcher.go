// Package notify turns order events into per-recipient notifications. The
// dispatcher consumes the order topics and fans out one delivery call per
// affected buyer or farmer; the delivery handler is the stub endpoint that
// would hand off to SMS or push in production.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/betteragri/marketplace/internal/domain"
)

const (
	TypeNewOrder       = "new_order"
	TypeFarmerNewOrder = "farmer_new_order"
	TypeOrderAccepted  = "order_accepted"
	TypeOrderRejected  = "order_rejected"
	TypeOrderShipped   = "order_shipped"
	TypeOrderDelivered = "order_delivered"
	TypeOrderCancelled = "order_cancelled"
)

// Notification is the payload posted to the delivery service.
type Notification struct {
	RecipientID string `json:"recipient_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	OrderID     string `json:"order_id"`
}

type Dispatcher struct {
	deliveryURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewDispatcher(deliveryURL string, client *http.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		deliveryURL: deliveryURL,
		httpClient:  client,
		logger:      logger,
	}
}

// HandleOrderCreated notifies the buyer and every farmer whose items are in
// the new order.
func (d *Dispatcher) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	d.logger.Info("processing order created event", "order_id", event.OrderID, "buyer_id", event.BuyerID)

	notifications := []Notification{{
		RecipientID: event.BuyerID,
		Type:        TypeNewOrder,
		Title:       "Commande " + event.OrderNumber,
		Body:        fmt.Sprintf("Votre commande %s a bien été enregistrée.", event.OrderNumber),
		OrderID:     event.OrderID,
	}}

	order := domain.Order{Items: event.Items}
	for _, farmerID := range order.ItemFarmerIDs() {
		notifications = append(notifications, Notification{
			RecipientID: farmerID,
			Type:        TypeFarmerNewOrder,
			Title:       "Nouvelle commande " + event.OrderNumber,
			Body:        "Vous avez reçu une nouvelle commande à confirmer.",
			OrderID:     event.OrderID,
		})
	}

	return d.sendAll(ctx, notifications)
}

// HandleStatusChanged maps a lifecycle transition to the recipients who care
// about it. Buyers hear about farmer actions, farmers hear about buyer
// cancellations and confirmed deliveries.
func (d *Dispatcher) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal status changed event: %w", err)
	}

	d.logger.Info("processing status change event",
		"order_id", event.OrderID, "from", event.From, "to", event.To, "action", event.Action)

	var notifications []Notification
	buyerNote := func(typ, body string) {
		notifications = append(notifications, Notification{
			RecipientID: event.BuyerID,
			Type:        typ,
			Title:       "Commande " + event.OrderNumber,
			Body:        body,
			OrderID:     event.OrderID,
		})
	}
	farmerNotes := func(typ, body string) {
		for _, farmerID := range event.FarmerIDs {
			notifications = append(notifications, Notification{
				RecipientID: farmerID,
				Type:        typ,
				Title:       "Commande " + event.OrderNumber,
				Body:        body,
				OrderID:     event.OrderID,
			})
		}
	}

	switch event.To {
	case domain.OrderStatusConfirmed:
		buyerNote(TypeOrderAccepted, "Votre commande a été acceptée par le producteur.")
	case domain.OrderStatusRejected:
		body := "Votre commande a été refusée."
		if event.Reason != "" {
			body = "Votre commande a été refusée : " + event.Reason
		}
		buyerNote(TypeOrderRejected, body)
	case domain.OrderStatusShipped:
		buyerNote(TypeOrderShipped, "Votre commande a été expédiée.")
	case domain.OrderStatusDelivered:
		buyerNote(TypeOrderDelivered, "Votre commande a été livrée. Vous pouvez évaluer vos producteurs.")
		farmerNotes(TypeOrderDelivered, "La commande a été confirmée livrée par l'acheteur.")
	case domain.OrderStatusCancelled:
		farmerNotes(TypeOrderCancelled, "La commande a été annulée par l'acheteur.")
	default:
		d.logger.Warn("no notification mapping for status", "status", event.To, "order_id", event.OrderID)
		return nil
	}

	return d.sendAll(ctx, notifications)
}

func (d *Dispatcher) sendAll(ctx context.Context, notifications []Notification) error {
	for _, n := range notifications {
		if err := d.send(ctx, n); err != nil {
			return fmt.Errorf("send %s to %s: %w", n.Type, n.RecipientID, err)
		}
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.deliveryURL+"/notifications/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delivery service returned status %d", resp.StatusCode)
	}

	return nil
}
