package enums

import "fmt"

// CheckoutState is the reconciliation state of a checkout session.
type CheckoutState string

const (
	CheckoutStateQuoteIssued        CheckoutState = "quote_issued"
	CheckoutStateIntentCreated      CheckoutState = "intent_created"
	CheckoutStateProofReceived      CheckoutState = "proof_received"
	CheckoutStateVerified           CheckoutState = "verified"
	CheckoutStateCommitted          CheckoutState = "committed"
	CheckoutStateVerificationFailed CheckoutState = "verification_failed"
	CheckoutStateCommitFailed       CheckoutState = "commit_failed"
	CheckoutStateExpired            CheckoutState = "expired"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateQuoteIssued,
	CheckoutStateIntentCreated,
	CheckoutStateProofReceived,
	CheckoutStateVerified,
	CheckoutStateCommitted,
	CheckoutStateVerificationFailed,
	CheckoutStateCommitFailed,
	CheckoutStateExpired,
}

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateQuoteIssued:   {CheckoutStateIntentCreated, CheckoutStateExpired},
	CheckoutStateIntentCreated: {CheckoutStateProofReceived, CheckoutStateExpired},
	CheckoutStateProofReceived: {CheckoutStateVerified, CheckoutStateVerificationFailed},
	CheckoutStateVerified:      {CheckoutStateCommitted, CheckoutStateCommitFailed},
	CheckoutStateCommitFailed:  {CheckoutStateCommitted, CheckoutStateCommitFailed},
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the session can no longer change state.
func (c CheckoutState) IsTerminal() bool {
	return len(checkoutTransitions[c]) == 0
}

// CanTransitionTo reports whether next directly follows c.
func (c CheckoutState) CanTransitionTo(next CheckoutState) bool {
	for _, candidate := range checkoutTransitions[c] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CheckoutStatesLeadingTo lists every state with a direct edge into next.
func CheckoutStatesLeadingTo(next CheckoutState) []CheckoutState {
	var out []CheckoutState
	for _, from := range validCheckoutStates {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
