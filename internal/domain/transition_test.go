package domain

import (
	"errors"
	"testing"
)

func TestTransition_LegalPath(t *testing.T) {
	steps := []struct {
		action Action
		role   Role
		want   OrderStatus
	}{
		{ActionAccept, RoleFarmer, OrderStatusConfirmed},
		{ActionMarkShipped, RoleFarmer, OrderStatusShipped},
		{ActionMarkDelivered, RoleBuyer, OrderStatusDelivered},
	}

	status := OrderStatusPending
	for _, step := range steps {
		next, err := Transition(status, step.action, step.role)
		if err != nil {
			t.Fatalf("Transition(%s, %s, %s): %v", status, step.action, step.role, err)
		}
		if next != step.want {
			t.Fatalf("Transition(%s, %s) = %s, want %s", status, step.action, next, step.want)
		}
		status = next
	}
}

func TestTransition_MarkShippedFromProcessing(t *testing.T) {
	next, err := Transition(OrderStatusProcessing, ActionMarkShipped, RoleFarmer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != OrderStatusShipped {
		t.Errorf("got %s, want %s", next, OrderStatusShipped)
	}
}

func TestTransition_TerminalExits(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		action Action
		role   Role
	}{
		{"cancel confirmed", OrderStatusConfirmed, ActionCancel, RoleBuyer},
		{"cancel shipped", OrderStatusShipped, ActionCancel, RoleBuyer},
		{"cancel delivered", OrderStatusDelivered, ActionCancel, RoleBuyer},
		{"accept confirmed", OrderStatusConfirmed, ActionAccept, RoleFarmer},
		{"accept cancelled", OrderStatusCancelled, ActionAccept, RoleFarmer},
		{"reject confirmed", OrderStatusConfirmed, ActionReject, RoleFarmer},
		{"reject rejected", OrderStatusRejected, ActionReject, RoleFarmer},
		{"ship pending", OrderStatusPending, ActionMarkShipped, RoleFarmer},
		{"ship delivered", OrderStatusDelivered, ActionMarkShipped, RoleFarmer},
		{"deliver pending", OrderStatusPending, ActionMarkDelivered, RoleBuyer},
		{"deliver confirmed", OrderStatusConfirmed, ActionMarkDelivered, RoleBuyer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Transition(tt.status, tt.action, tt.role); !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("Transition(%s, %s) error = %v, want ErrIllegalTransition", tt.status, tt.action, err)
			}
		})
	}
}

func TestTransition_WrongRole(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		action Action
		role   Role
	}{
		{"buyer accepts", OrderStatusPending, ActionAccept, RoleBuyer},
		{"buyer rejects", OrderStatusPending, ActionReject, RoleBuyer},
		{"buyer ships", OrderStatusConfirmed, ActionMarkShipped, RoleBuyer},
		{"farmer cancels", OrderStatusPending, ActionCancel, RoleFarmer},
		{"farmer delivers", OrderStatusShipped, ActionMarkDelivered, RoleFarmer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Transition(tt.status, tt.action, tt.role); !errors.Is(err, ErrWrongRole) {
				t.Errorf("Transition(%s, %s, %s) error = %v, want ErrWrongRole", tt.status, tt.action, tt.role, err)
			}
		})
	}
}

func TestTransition_RejectionIsNotCancellation(t *testing.T) {
	rejected, err := Transition(OrderStatusPending, ActionReject, RoleFarmer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancelled, err := Transition(OrderStatusPending, ActionCancel, RoleBuyer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected == cancelled {
		t.Errorf("rejected and cancelled must be distinct terminal states, both were %s", rejected)
	}
	if !rejected.IsTerminal() || !cancelled.IsTerminal() {
		t.Errorf("rejected (%s) and cancelled (%s) must both be terminal", rejected, cancelled)
	}
}

func TestAction_RequiresReason(t *testing.T) {
	for _, a := range []Action{ActionAccept, ActionMarkShipped, ActionMarkDelivered, ActionCancel} {
		if a.RequiresReason() {
			t.Errorf("%s should not require a reason", a)
		}
	}
	if !ActionReject.RequiresReason() {
		t.Error("reject must require a reason")
	}
}
