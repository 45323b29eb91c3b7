package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a payment amount decoded leniently from a JSON number or string.
// Empty input (null, "", false) decodes to zero; anything that is not a number
// decodes to an invalid Amount instead of failing the whole request.
type Amount struct {
	decimal.Decimal
	invalid bool
}

// NewAmount wraps d as a valid Amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// Valid reports whether the amount parsed as a number.
func (a Amount) Valid() bool {
	return !a.invalid
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}

	raw := bytes.TrimSpace(data)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte("false")):
		return nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			a.invalid = true
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		raw = []byte(s)
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		a.invalid = true
		return nil
	}
	a.Decimal = d
	return nil
}
