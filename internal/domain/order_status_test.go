package domain

import "testing"

func TestStatusForwardSteps(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func TestStatusNoSkippingOrReversing(t *testing.T) {
	denied := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusProcessing, OrderStatusPending},
		{OrderStatusShipped, OrderStatusProcessing},
		{OrderStatusDelivered, OrderStatusShipped},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestCancellableFromAnyNonTerminal(t *testing.T) {
	for _, from := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped} {
		if !from.CanTransitionTo(OrderStatusCancelled) {
			t.Fatalf("expected %s -> CANCELLED to be allowed", from)
		}
	}
}

func TestTerminalStatesFrozen(t *testing.T) {
	targets := []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled}
	for _, from := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		for _, to := range targets {
			if from.CanTransitionTo(to) {
				t.Fatalf("expected terminal %s to deny transition to %s", from, to)
			}
		}
	}
}

func TestToOrderStatus(t *testing.T) {
	if _, err := ToOrderStatus("SHIPPED"); err != nil {
		t.Fatalf("expected SHIPPED to parse: %v", err)
	}
	if _, err := ToOrderStatus("REFUNDED"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}
