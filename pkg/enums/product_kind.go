package enums

import "fmt"

// ProductKind separates permanent catalog rows from short lived daily listings.
type ProductKind string

const (
	ProductKindStanding ProductKind = "standing"
	ProductKindDaily    ProductKind = "daily"
)

var validProductKinds = []ProductKind{
	ProductKindStanding,
	ProductKindDaily,
}

// String implements fmt.Stringer.
func (p ProductKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductKind.
func (p ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
