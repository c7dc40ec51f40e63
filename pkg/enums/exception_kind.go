package enums

import "fmt"

// ExceptionKind classifies a reconciliation exception awaiting manual review.
type ExceptionKind string

const (
	ExceptionOversell     ExceptionKind = "oversell"
	ExceptionCommitFailed ExceptionKind = "commit_failed"
	ExceptionLatePayment  ExceptionKind = "late_payment"
	// ExceptionOrphanedPayment is a genuine proof for a session that already
	// failed verification.
	ExceptionOrphanedPayment ExceptionKind = "orphaned_payment"
	// ExceptionUnderpaid is an order whose total rose above the captured
	// amount because its promotion was revoked at commit.
	ExceptionUnderpaid ExceptionKind = "underpaid"
)

var validExceptionKinds = []ExceptionKind{
	ExceptionOversell,
	ExceptionCommitFailed,
	ExceptionLatePayment,
	ExceptionOrphanedPayment,
	ExceptionUnderpaid,
}

// String implements fmt.Stringer.
func (e ExceptionKind) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExceptionKind.
func (e ExceptionKind) IsValid() bool {
	for _, candidate := range validExceptionKinds {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExceptionKind converts raw input into a ExceptionKind.
func ParseExceptionKind(value string) (ExceptionKind, error) {
	for _, candidate := range validExceptionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exception kind %q", value)
}
