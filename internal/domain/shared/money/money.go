package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// Money keeps amounts in integer minor units (cents) to avoid floating point issues.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: strings.ToUpper(currency)}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount * times, Currency: m.Currency}
}

// Percent returns the given percentage of the amount, rounded half-up to a cent.
func (m Money) Percent(p int) Money {
	if p <= 0 {
		return Money{Amount: 0, Currency: m.Currency}
	}
	return Money{Amount: (m.Amount*int64(p) + 50) / 100, Currency: m.Currency}
}

// BasisPoints returns amount*bp/10000 rounded half-up to a cent. Used for
// processor fee formulas quoted in fractions of a percent.
func (m Money) BasisPoints(bp int64) Money {
	if bp <= 0 {
		return Money{Amount: 0, Currency: m.Currency}
	}
	return Money{Amount: (m.Amount*bp + 5000) / 10000, Currency: m.Currency}
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// IsPositive returns true if the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// Equal compares amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// String renders the amount with two decimals, e.g. "354.00 USD".
func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
