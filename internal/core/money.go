// Package core contains the domain model: exact-decimal money, ledgers,
// transactions, goals and job applications.
//
// This file implements the fixed-point money type. All balance arithmetic
// goes through Money so amounts never touch binary floating point.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount with a scale of two fractional digits.
type Money struct {
	d decimal.Decimal
}

// Zero returns the zero amount ("0.00").
func Zero() Money {
	return Money{}
}

// ParseAmount parses a user-supplied transaction or goal amount: a decimal
// string with at most two fractional digits, strictly greater than zero.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12")    -> 12.00, nil
//	ParseAmount("12.345") -> ErrInvalidAmount (too many fractional digits)
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	m, err := ParseBalance(s)
	if err != nil {
		return Money{}, err
	}
	if !m.d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseBalance parses a stored balance. Same format as ParseAmount but zero
// and negative values are accepted, since a vacation ledger balance may dip
// below zero after an unblocked withdrawal.
func ParseBalance(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Exponent() < -2 {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o. The result may be negative.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// SubClamped returns m - o floored at zero. Used for compensating
// reversals that must not create phantom debt.
func (m Money) SubClamped(o Money) Money {
	r := m.d.Sub(o.d)
	if r.IsNegative() {
		return Money{}
	}
	return Money{d: r}
}

// Cmp compares m and o: -1 if m < o, 0 if equal, 1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// LessThan reports whether m < o.
func (m Money) LessThan(o Money) bool {
	return m.d.Cmp(o.d) < 0
}

// Min returns the smaller of m and o.
func (m Money) Min(o Money) Money {
	if m.d.Cmp(o.d) <= 0 {
		return m
	}
	return o
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// String renders the amount normalized to exactly two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(2)
}
