// Package money implements exact currency amounts stored as integer cents.
// Conversion to and from decimal text only happens at the API and storage
// boundaries; every sum inside the engine is plain int64 arithmetic.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrSubCentavo is returned when a decimal amount carries more precision than cents.
var ErrSubCentavo = errors.New("money: el monto tiene fracciones menores a un centavo")

// ErrFueraDeRango is returned when an amount exceeds Limite in absolute value.
var ErrFueraDeRango = errors.New("money: el monto excede el límite admitido")

// Limite bounds every amount entering the engine: 10^15 cents. Sums of
// thousands of bounded amounts still fit in int64.
const Limite Money = 1_000_000_000_000_000

var limiteDecimal = decimal.NewFromInt(int64(Limite))

// Money is an amount in cents. The zero value is Q0.00.
type Money int64

// Zero is the additive identity.
const Zero Money = 0

// FromCents builds a Money from a raw cent count.
func FromCents(c int64) Money { return Money(c) }

// FromDecimal converts an exact decimal amount (e.g. 30.25) into cents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrSubCentavo, d.String())
	}
	// IntPart wraps silently outside int64
	if cents.Abs().GreaterThan(limiteDecimal) {
		return 0, fmt.Errorf("%w: %s", ErrFueraDeRango, d.String())
	}
	return Money(cents.IntPart()), nil
}

// Parse reads a decimal string such as "180.25" or "-5".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("money: monto inválido %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64 { return int64(m) }

func (m Money) Add(o Money) Money { return m + o }

func (m Money) Sub(o Money) Money { return m - o }

// MulInt multiplies by an integer quantity (a denomination count, units sold…).
func (m Money) MulInt(n int64) Money { return Money(int64(m) * n) }

// MulIntAcotado is MulInt for untrusted quantities: it fails instead of
// leaving [-Limite, Limite].
func (m Money) MulIntAcotado(n int64) (Money, error) {
	if m != 0 && (n > int64(Limite/m.Abs()) || n < -int64(Limite/m.Abs())) {
		return 0, fmt.Errorf("%w: %s × %d", ErrFueraDeRango, m, n)
	}
	return m.MulInt(n), nil
}

// AddAcotado is Add that fails when the result leaves [-Limite, Limite].
// Both operands must already be within the bound.
func (m Money) AddAcotado(o Money) (Money, error) {
	r := m + o
	if r.Abs() > Limite {
		return 0, fmt.Errorf("%w: %s + %s", ErrFueraDeRango, m, o)
	}
	return r, nil
}

func (m Money) Neg() Money { return -m }

func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsNegative() bool { return m < 0 }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m < o:
		return -1
	case m > o:
		return 1
	default:
		return 0
	}
}

// Sum adds any number of amounts.
func Sum(ms ...Money) Money {
	var total Money
	for _, m := range ms {
		total += m
	}
	return total
}

// Decimal returns the exact decimal representation (two fractional digits).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String renders "180.25" / "-5.25".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount with a currency symbol, e.g. "Q180.25" or "-Q5.25".
func (m Money) Format(simbolo string) string {
	if m < 0 {
		return "-" + simbolo + m.Abs().String()
	}
	return simbolo + m.String()
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
