package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// CFA is the ISO code of the West African CFA franc used for every amount in the hotel.
const CFA = "XOF"

// Money keeps amounts in integer CFA francs; the franc has no minor unit.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Francs is shorthand for an amount in CFA francs.
func Francs(amount int64) Money {
	return Money{Amount: amount, Currency: CFA}
}

// Zero returns an empty amount in the receiver's currency.
func (m Money) Zero() Money {
	return Money{Currency: m.currency()}
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.currency()}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.currency()}, nil
}

func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount * times, Currency: m.currency()}
}

// Percent returns pct percent of the amount, rounded half away from zero to whole francs.
func (m Money) Percent(pct decimal.Decimal) Money {
	if pct.IsZero() || m.Amount == 0 {
		return m.Zero()
	}
	v := decimal.NewFromInt(m.Amount).Mul(pct).Div(decimal.NewFromInt(100)).Round(0)
	return Money{Amount: v.IntPart(), Currency: m.currency()}
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

// GreaterOrEqual compares amounts; currencies are assumed to match.
func (m Money) GreaterOrEqual(other Money) bool {
	return m.Amount >= other.Amount
}

func (m Money) currency() string {
	if m.Currency == "" {
		return CFA
	}
	return m.Currency
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.currency() != other.currency() {
		return ErrCurrencyMismatch
	}
	return nil
}
