package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPlaced, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusConfirmed, OrderStatusShipped, false},
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusPlaced, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusConfirmed, OrderStatus("lost"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCheckoutStateMachine(t *testing.T) {
	happy := []CheckoutState{
		CheckoutStateQuoteIssued,
		CheckoutStateIntentCreated,
		CheckoutStateProofReceived,
		CheckoutStateVerified,
		CheckoutStateCommitted,
	}
	for i := 0; i < len(happy)-1; i++ {
		if !happy[i].CanTransitionTo(happy[i+1]) {
			t.Fatalf("expected %s -> %s", happy[i], happy[i+1])
		}
	}
	if CheckoutStateIntentCreated.CanTransitionTo(CheckoutStateVerified) {
		t.Fatalf("states must not be skipped")
	}
	if CheckoutStateVerified.CanTransitionTo(CheckoutStateExpired) {
		t.Fatalf("verified sessions cannot expire")
	}
	for _, terminal := range []CheckoutState{CheckoutStateCommitted, CheckoutStateVerificationFailed, CheckoutStateExpired} {
		if !terminal.IsTerminal() {
			t.Fatalf("expected %s to be terminal", terminal)
		}
	}
	if CheckoutStateCommitFailed.IsTerminal() {
		t.Fatalf("commit_failed must stay retryable")
	}

	into := CheckoutStatesLeadingTo(CheckoutStateCommitted)
	if len(into) != 2 || into[0] != CheckoutStateVerified || into[1] != CheckoutStateCommitFailed {
		t.Fatalf("unexpected predecessors of committed: %v", into)
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseOrderStatus("shipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("Shipped"); err == nil {
		t.Fatalf("expected case-sensitive parse to fail")
	}
	if d, err := ParseDiscountType("flat"); err != nil || d != DiscountTypeFlat {
		t.Fatalf("unexpected discount type %q err %v", d, err)
	}
	if _, err := ParseExceptionKind("oversold"); err == nil {
		t.Fatalf("expected invalid exception kind")
	}
}
