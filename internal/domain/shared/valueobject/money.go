package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
)

// DefaultCurrency is the currency the service operates in
const DefaultCurrency = BRL

// Money pairs an exact decimal amount with its currency. Instances are
// immutable; arithmetic returns new values.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money in the given currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyBRL creates Money in the default currency
func NewMoneyBRL(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: BRL}
}

// NewMoneyBRLFromFloat creates BRL Money from a float value
func NewMoneyBRLFromFloat(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount), currency: BRL}
}

// ZeroBRL is the additive identity in the default currency
func ZeroBRL() Money {
	return Money{amount: decimal.Zero, currency: BRL}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add sums two amounts; mixing currencies is an error
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// MultiplyByInt scales the amount, used for unit price times quantity
func (m Money) MultiplyByInt(factor int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(factor)), currency: m.currency}
}

// Equals compares amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders the amount with two decimal places and the currency code
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// StringFixed renders the bare amount with the given decimal places
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	m.currency = v.Currency
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}
