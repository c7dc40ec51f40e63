package enums

import "fmt"

// OrderStatus is the fulfillment status of a committed order.
type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "placed"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// validOrderStatuses doubles as the forward fulfillment sequence; cancelled sits outside it.
var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfillment transitions are possible.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from o to next follows the fulfillment
// sequence: one step forward, or cancellation from any pre-delivered status.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !o.IsValid() || !next.IsValid() || o.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	from, to := o.position(), next.position()
	return to == from+1
}

func (o OrderStatus) position() int {
	for i, candidate := range validOrderStatuses[:5] {
		if candidate == o {
			return i
		}
	}
	return -1
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
