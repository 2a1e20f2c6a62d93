package domain

import "time"

type OrderCreatedEvent struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	BuyerID     string      `json:"buyer_id"`
	Items       []OrderItem `json:"items"`
	Timestamp   time.Time   `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	BuyerID     string      `json:"buyer_id"`
	FarmerIDs   []string    `json:"farmer_ids"`
	Action      Action      `json:"action"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	Reason      string      `json:"reason,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ItemFarmerIDs returns the distinct farmers with items in the order, in
// first-appearance order.
func (o *Order) ItemFarmerIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	var ids []string
	for _, item := range o.Items {
		id := item.FarmerID
		if id == "" {
			id = item.Product.FarmerID
		}
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
