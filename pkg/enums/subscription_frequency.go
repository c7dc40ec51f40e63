package enums

import "fmt"

// SubscriptionFrequency is the repeat cadence requested for a subscription order.
type SubscriptionFrequency string

const (
	SubscriptionWeekly   SubscriptionFrequency = "weekly"
	SubscriptionBiweekly SubscriptionFrequency = "biweekly"
	SubscriptionMonthly  SubscriptionFrequency = "monthly"
)

var validSubscriptionFrequencies = []SubscriptionFrequency{
	SubscriptionWeekly,
	SubscriptionBiweekly,
	SubscriptionMonthly,
}

// String implements fmt.Stringer.
func (s SubscriptionFrequency) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionFrequency.
func (s SubscriptionFrequency) IsValid() bool {
	for _, candidate := range validSubscriptionFrequencies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionFrequency converts raw input into a SubscriptionFrequency.
func ParseSubscriptionFrequency(value string) (SubscriptionFrequency, error) {
	for _, candidate := range validSubscriptionFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription frequency %q", value)
}
