package models

import (
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// Points is an exact amount of dundie points. It is signed: positive values
// are credits, negative values are debits.
type Points struct {
	value decimal.Decimal
}

// P returns an integral amount of points.
func P(v int64) Points {
	return Points{value: decimal.NewFromInt(v)}
}

// ParsePoints parses a decimal string such as "-30" or "12.5".
func ParsePoints(s string) (Points, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Points{}, fmt.Errorf("invalid points %q: %w", s, err)
	}
	return Points{value: d}, nil
}

// Add returns p + o.
func (p Points) Add(o Points) Points { return Points{value: p.value.Add(o.value)} }

// Sub returns p - o.
func (p Points) Sub(o Points) Points { return Points{value: p.value.Sub(o.value)} }

// Neg returns -p.
func (p Points) Neg() Points { return Points{value: p.value.Neg()} }

// Cmp returns -1, 0 or +1 as p is less than, equal to or greater than o.
func (p Points) Cmp(o Points) int { return p.value.Cmp(o.value) }

// Equal reports whether p and o are the same amount, whatever their scale.
func (p Points) Equal(o Points) bool { return p.value.Equal(o.value) }

// LessThan reports whether p < o.
func (p Points) LessThan(o Points) bool { return p.value.LessThan(o.value) }

// IsNegative reports whether p < 0.
func (p Points) IsNegative() bool { return p.value.IsNegative() }

// IsPositive reports whether p > 0.
func (p Points) IsPositive() bool { return p.value.IsPositive() }

// IsZero reports whether p == 0.
func (p Points) IsZero() bool { return p.value.IsZero() }

// String returns the decimal representation without exponent.
func (p Points) String() string { return p.value.String() }

// Float64 returns the nearest float64, for display only.
func (p Points) Float64() float64 {
	f, _ := p.value.Float64()
	return f
}

// Matches lets Points take part in table filters against Points, integers and
// decimal strings.
func (p Points) Matches(v any) bool {
	switch w := v.(type) {
	case Points:
		return p.Equal(w)
	case int:
		return p.Equal(P(int64(w)))
	case int64:
		return p.Equal(P(w))
	case float64:
		return p.value.Equal(decimal.NewFromFloat(w))
	case string:
		o, err := ParsePoints(w)
		return err == nil && p.Equal(o)
	}
	return false
}

// MarshalJSON encodes points as a bare JSON number.
func (p Points) MarshalJSON() ([]byte, error) {
	return []byte(p.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal.
func (p *Points) UnmarshalJSON(b []byte) error {
	return p.value.UnmarshalJSON(b)
}

// JSONSchema describes Points as a number.
func (Points) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number"}
}
