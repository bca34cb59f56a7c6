package enums

import "fmt"

// DeliveryType describes how a buyer receives an order.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDineIn   DeliveryType = "dine_in"
)

var validDeliveryTypes = []DeliveryType{
	DeliveryTypeDelivery,
	DeliveryTypePickup,
	DeliveryTypeDineIn,
}

// String implements fmt.Stringer.
func (d DeliveryType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryType.
func (d DeliveryType) IsValid() bool {
	for _, candidate := range validDeliveryTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// RequiresDriver reports whether the fulfillment flow involves a courier leg.
func (d DeliveryType) RequiresDriver() bool {
	return d == DeliveryTypeDelivery
}

// ParseDeliveryType converts raw input into a DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	for _, candidate := range validDeliveryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery type %q", value)
}
