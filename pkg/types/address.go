package types

import (
	"fmt"
	"strings"
)

// DefaultCountry is applied when a shipping address omits its country.
const DefaultCountry = "India"

// ShippingAddress is frozen onto checkout sessions and orders as JSON.
type ShippingAddress struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Street   string `json:"street" validate:"required,max=240"`
	City     string `json:"city" validate:"required,max=80"`
	State    string `json:"state" validate:"required,max=80"`
	Pincode  string `json:"pincode" validate:"required,max=12"`
	Country  string `json:"country,omitempty" validate:"omitempty,max=80"`
}

// Normalize trims every field and fills the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	out := ShippingAddress{
		FullName: strings.TrimSpace(a.FullName),
		Phone:    strings.TrimSpace(a.Phone),
		Street:   strings.TrimSpace(a.Street),
		City:     strings.TrimSpace(a.City),
		State:    strings.TrimSpace(a.State),
		Pincode:  strings.TrimSpace(a.Pincode),
		Country:  strings.TrimSpace(a.Country),
	}
	if out.Country == "" {
		out.Country = DefaultCountry
	}
	return out
}

// Validate reports the first missing required field.
func (a ShippingAddress) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"full_name", a.FullName},
		{"phone", a.Phone},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"pincode", a.Pincode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("shipping address: missing %s", field.name)
		}
	}
	return nil
}
