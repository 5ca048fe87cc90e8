// Package money stores currency as integer minor units (cents).
package money

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

// Cents is an amount in minor units. JSON form is a fixed two-decimal string.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Parse converts a decimal string such as "100.00" into cents.
// More than two fractional digits is rejected rather than rounded.
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, apperr.Validation("invalid amount %q", s)
	}
	return FromDecimal(d)
}

func FromDecimal(d decimal.Decimal) (Cents, error) {
	minor := d.Mul(hundred)
	if !minor.IsInteger() {
		return 0, apperr.Validation("amount %s has more than two decimal places", d.String())
	}
	if !minor.Abs().LessThan(decimal.NewFromInt(1 << 53)) {
		return 0, apperr.Validation("amount %s is out of range", d.String())
	}
	return Cents(minor.IntPart()), nil
}

func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

func (c Cents) String() string { return c.Decimal().StringFixed(2) }

func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts both "12.50" and 12.50.
func (c *Cents) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Fee is amount * bps / 10000 rounded half up.
func Fee(amount Cents, bps int64) Cents {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return Cents((int64(amount)*bps + 5000) / 10000)
}

// RequirePositive returns a validation error unless c > 0.
func RequirePositive(field string, c Cents) error {
	if c <= 0 {
		return apperr.Validation("%s must be greater than zero", field)
	}
	return nil
}

// Format renders c with a currency prefix for emails.
func (c Cents) Format(currency string) string {
	return fmt.Sprintf("%s %s", currency, c.String())
}
