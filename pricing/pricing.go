// Package pricing holds the fixed price list for payment types.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the only currency prices are expressed in.
const Currency = "ETB"

const (
	TypeLogin  = "login"
	TypeSignup = "signup"

	dailyPrefix = "daily_"
)

// Table maps a resolved payment type to its required amount.
type Table map[string]decimal.Decimal

// Default is the production price list.
var Default = Table{
	TypeLogin:  decimal.RequireFromString("20.00"),
	TypeSignup: decimal.RequireFromString("100.00"),
}

// Resolve normalizes a payment type tag for price lookup. "daily_<date>"
// passes are priced as logins; every other tag is returned unchanged.
func Resolve(paymentType string) string {
	if strings.HasPrefix(paymentType, dailyPrefix) {
		return TypeLogin
	}
	return paymentType
}

// Price returns the amount required for paymentType after resolution.
func (t Table) Price(paymentType string) (decimal.Decimal, bool) {
	price, ok := t[Resolve(paymentType)]
	return price, ok
}

// Matches reports whether amount equals the price exactly. 20, 20.0 and 20.00
// are equal; 19.999 is not.
func Matches(amount, price decimal.Decimal) bool {
	return amount.Equal(price)
}
