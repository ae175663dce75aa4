// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every balance and ledger amount,
// and the parser that fixes amount precision when a value enters the system.
package core

import (
	"encoding/json"
	"math"
	"strings"
	"unicode"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fraction digits kept for every amount.
const AmountScale = 2

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Money is an exact decimal amount. The zero value is zero.
type Money struct {
	d decimal.Decimal
}

// NewMoney wraps a decimal, rounding it to AmountScale.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(AmountScale)}
}

// MoneyFromCents builds a Money from integer minor units.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -AmountScale)}
}

// MustMoney parses a decimal literal and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return NewMoney(d)
}

// ParseAmount converts user input to a positive Money with fixed precision.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third fraction digit. Signs, exponents, zero and values whose
// minor units overflow int64 are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("0")      -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return Money{}, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(d)
	if !m.IsPositive() || m.d.Shift(AmountScale).GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Cents returns the amount in integer minor units. The result is only
// meaningful when FitsCents reports true.
func (m Money) Cents() int64 { return m.d.Shift(AmountScale).IntPart() }

// FitsCents reports whether m converts to int64 minor units without wrapping.
func (m Money) FitsCents() bool {
	c := m.d.Shift(AmountScale)
	return !c.GreaterThan(maxCents) && !c.LessThan(minCents)
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool    { return m.d.LessThan(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsZero() bool             { return m.d.IsZero() }

// String renders the amount with exactly AmountScale fraction digits.
func (m Money) String() string { return m.d.StringFixed(AmountScale) }

// MarshalJSON encodes the amount as a fixed-precision decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Display formats the amount for humans in the given ISO currency code, e.g. "Rp 1.500,00".
// Unknown codes fall back to the plain decimal string.
func (m Money) Display(currency string) string {
	if gomoney.GetCurrency(currency) == nil {
		return m.String()
	}
	return gomoney.New(m.Cents(), currency).Display()
}
