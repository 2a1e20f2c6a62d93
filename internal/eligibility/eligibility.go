// Package eligibility derives action sets and boolean flags from an order's
// current status and the acting user's relationship to it. Every function is
// pure: inputs in, answer out, no session state and no I/O. Handlers and UI
// layers call these instead of re-deriving the rules.
package eligibility

import (
	"github.com/shopspring/decimal"

	"github.com/betteragri/marketplace/internal/domain"
)

// CanCancel reports whether userID may cancel the order. Only the buyer may
// cancel, and only while the order is still pending.
func CanCancel(order domain.Order, userID string) bool {
	return order.Status == domain.OrderStatusPending && order.BuyerID == userID
}

// CanReview reports whether the farmer's part of the order can still be
// reviewed: the order must be delivered and the ledger must not already hold
// a review for this (order, farmer) pair.
func CanReview(order domain.Order, farmerID string, ledger *Ledger) bool {
	if order.Status != domain.OrderStatusDelivered {
		return false
	}
	if !hasFarmerItems(order, farmerID) {
		return false
	}
	return !ledger.HasReviewed(order.ID, farmerID)
}

// ReviewableFarmers lists the farmers in the order the buyer has not yet
// reviewed, in item order. Empty unless the order is delivered.
func ReviewableFarmers(order domain.Order, ledger *Ledger) []string {
	if order.Status != domain.OrderStatusDelivered {
		return nil
	}
	var farmers []string
	for _, id := range order.ItemFarmerIDs() {
		if !ledger.HasReviewed(order.ID, id) {
			farmers = append(farmers, id)
		}
	}
	return farmers
}

// AvailableFarmerActions returns the actions the farmer may currently take
// on the order. Empty when the farmer has no items in it.
func AvailableFarmerActions(order domain.Order, farmerID string) []domain.Action {
	if !hasFarmerItems(order, farmerID) {
		return nil
	}

	switch order.Status {
	case domain.OrderStatusPending:
		return []domain.Action{domain.ActionAccept, domain.ActionReject}
	case domain.OrderStatusConfirmed, domain.OrderStatusProcessing:
		return []domain.Action{domain.ActionMarkShipped}
	default:
		return nil
	}
}

// AvailableBuyerActions mirrors AvailableFarmerActions for the buyer side.
func AvailableBuyerActions(order domain.Order, userID string) []domain.Action {
	if order.BuyerID != userID {
		return nil
	}

	switch order.Status {
	case domain.OrderStatusPending:
		return []domain.Action{domain.ActionCancel}
	case domain.OrderStatusShipped:
		return []domain.Action{domain.ActionMarkDelivered}
	default:
		return nil
	}
}

// FarmerItems returns only the line items matched to the farmer. One order
// may span several farmers; each must see and act on their portion only.
func FarmerItems(order domain.Order, farmerID string) []domain.OrderItem {
	var items []domain.OrderItem
	for _, item := range order.Items {
		if item.BelongsToFarmer(farmerID) {
			items = append(items, item)
		}
	}
	return items
}

// FarmerTotal sums the line totals of the farmer's matched items.
func FarmerTotal(order domain.Order, farmerID string) decimal.Decimal {
	total := decimal.Zero
	for _, item := range order.Items {
		if item.BelongsToFarmer(farmerID) {
			total = total.Add(item.TotalPrice)
		}
	}
	return total
}

// FilterFarmerOrders keeps only orders containing at least one of the
// farmer's items. Orders with zero matched items must never reach a farmer's
// list; filtering happens here, upstream of any rendering.
func FilterFarmerOrders(orders []domain.Order, farmerID string) []domain.Order {
	filtered := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if hasFarmerItems(order, farmerID) {
			filtered = append(filtered, order)
		}
	}
	return filtered
}

func hasFarmerItems(order domain.Order, farmerID string) bool {
	for _, item := range order.Items {
		if item.BelongsToFarmer(farmerID) {
			return true
		}
	}
	return false
}
