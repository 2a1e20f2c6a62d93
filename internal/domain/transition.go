package domain

import (
	"errors"
	"fmt"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleFarmer Role = "farmer"
)

func (r Role) IsValid() bool {
	return r == RoleBuyer || r == RoleFarmer
}

// Action is a status-changing operation on an order. The set is closed:
// every legal status change is reachable through exactly one action.
type Action string

const (
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionMarkShipped   Action = "mark_shipped"
	ActionMarkDelivered Action = "mark_delivered"
	ActionCancel        Action = "cancel"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionAccept, ActionReject, ActionMarkShipped, ActionMarkDelivered, ActionCancel:
		return true
	default:
		return false
	}
}

// ActorRole is the role allowed to perform the action. Delivery is
// confirmed by the buyer, not the farmer; that is a deliberate trust-model
// choice carried over from the marketplace rules.
func (a Action) ActorRole() Role {
	switch a {
	case ActionAccept, ActionReject, ActionMarkShipped:
		return RoleFarmer
	case ActionMarkDelivered, ActionCancel:
		return RoleBuyer
	default:
		return ""
	}
}

// RequiresReason reports whether the action must carry a reason string.
func (a Action) RequiresReason() bool {
	return a == ActionReject
}

var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrWrongRole         = errors.New("action not allowed for role")
)

// Transition returns the status an order in status s moves to when action a
// is performed by an actor with role r. The table is the single source of
// truth for the order lifecycle:
//
//	pending   -> confirmed (farmer accept) | rejected (farmer reject) | cancelled (buyer cancel)
//	confirmed -> shipped   (farmer mark_shipped)
//	processing-> shipped   (farmer mark_shipped)
//	shipped   -> delivered (buyer mark_delivered)
//
// delivered, cancelled and rejected are terminal. processing is set by
// back-office tooling only; no API action produces it.
func Transition(s OrderStatus, a Action, r Role) (OrderStatus, error) {
	if a.ActorRole() != r {
		return "", fmt.Errorf("%w: %s requires %s, got %s", ErrWrongRole, a, a.ActorRole(), r)
	}

	switch a {
	case ActionAccept:
		if s == OrderStatusPending {
			return OrderStatusConfirmed, nil
		}
	case ActionReject:
		if s == OrderStatusPending {
			return OrderStatusRejected, nil
		}
	case ActionCancel:
		if s == OrderStatusPending {
			return OrderStatusCancelled, nil
		}
	case ActionMarkShipped:
		if s == OrderStatusConfirmed || s == OrderStatusProcessing {
			return OrderStatusShipped, nil
		}
	case ActionMarkDelivered:
		if s == OrderStatusShipped {
			return OrderStatusDelivered, nil
		}
	}

	return "", fmt.Errorf("%w: cannot %s an order in status %s", ErrIllegalTransition, a, s)
}
