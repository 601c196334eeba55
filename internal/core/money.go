// Package core holds the budget domain model.
//
// This file contains the decimal money type. Amounts are never floats: they
// are parsed from user input, summed and formatted with shopspring/decimal.
package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Money is a decimal amount in the user's (cosmetic) currency.
type Money struct {
	d decimal.Decimal
}

var (
	Zero    = Money{}
	hundred = decimal.NewFromInt(100)
)

// NewMoney builds a Money from an integer amount of cents.
func NewMoney(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// MoneyFromDecimal wraps an existing decimal.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// ParseMoney parses a decimal string. Both dot (12.34) and comma (12,34)
// separators are accepted. Sign and magnitude are not checked here.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Money{d: d}, nil
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

// WholeCents reports whether m has no digits past the second decimal.
// Trailing zeros do not count.
func (m Money) WholeCents() bool { return m.d.Equal(m.d.Truncate(2)) }

// Percent returns m as a percentage of total. Zero when total is zero.
func (m Money) Percent(total Money) float64 {
	if total.d.IsZero() {
		return 0
	}
	f, _ := m.d.Mul(hundred).Div(total.d).Float64()
	return f
}

// String renders the amount with exactly two decimals, rounding half away
// from zero.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// Format renders the amount followed by the currency symbol.
func (m Money) Format(currency string) string {
	return m.String() + " " + currency
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = Zero
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as its exact decimal text.
func (m Money) Value() (driver.Value, error) {
	return m.d.String(), nil
}

func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	m.d = d
	return nil
}
