// Package fixedpoint implements the unsigned 128-bit integer arithmetic used for
// every price, reserve and share amount in a market. Division always truncates.
package fixedpoint

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// U128 is an unsigned integer limited to 128 bits. The zero value is 0.
//
// Add, Sub, Mul, MulDiv and Div panic with *ArithmeticError when the result does
// not fit or a division by zero is attempted; callers that run a whole state
// transition convert that panic into an error with Recover.
type U128 struct {
	v uint256.Int
}

var max128 = func() uint256.Int {
	var m uint256.Int
	m.Lsh(uint256.NewInt(1), 128)
	m.SubUint64(&m, 1)
	return m
}()

// Zero returns 0.
func Zero() U128 { return U128{} }

// New returns x as a U128.
func New(x uint64) U128 {
	var u U128
	u.v.SetUint64(x)
	return u
}

// Max returns the largest representable value, 2^128-1.
func Max() U128 { return U128{v: max128} }

// FromDecimal parses a base-10 string.
func FromDecimal(s string) (U128, error) {
	var u U128
	if err := u.v.SetFromDecimal(s); err != nil {
		return U128{}, fmt.Errorf("fixedpoint: parse %q: %w", s, err)
	}
	if u.v.Gt(&max128) {
		return U128{}, fmt.Errorf("fixedpoint: %q exceeds 128 bits", s)
	}
	return u, nil
}

// MustFromDecimal is FromDecimal that panics on malformed input. Intended for
// constants and tests.
func MustFromDecimal(s string) U128 {
	u, err := FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return u
}

func checked(op string, a, b U128, z *uint256.Int, overflow bool) U128 {
	if overflow || z.Gt(&max128) {
		panic(&ArithmeticError{Op: op, A: a.String(), B: b.String()})
	}
	return U128{v: *z}
}

// Add returns a+b.
func (a U128) Add(b U128) U128 {
	var z uint256.Int
	_, of := z.AddOverflow(&a.v, &b.v)
	return checked("add", a, b, &z, of)
}

// Sub returns a-b and panics when b > a.
func (a U128) Sub(b U128) U128 {
	var z uint256.Int
	_, uf := z.SubOverflow(&a.v, &b.v)
	return checked("sub", a, b, &z, uf)
}

// CheckedSub returns a-b, or false when b > a.
func (a U128) CheckedSub(b U128) (U128, bool) {
	if a.v.Lt(&b.v) {
		return U128{}, false
	}
	var z uint256.Int
	z.Sub(&a.v, &b.v)
	return U128{v: z}, true
}

// Mul returns a*b.
func (a U128) Mul(b U128) U128 {
	var z uint256.Int
	_, of := z.MulOverflow(&a.v, &b.v)
	return checked("mul", a, b, &z, of)
}

// Div returns floor(a/b).
func (a U128) Div(b U128) U128 {
	if b.IsZero() {
		panic(&ArithmeticError{Op: "div", A: a.String(), B: b.String()})
	}
	var z uint256.Int
	z.Div(&a.v, &b.v)
	return U128{v: z}
}

// MulDiv returns floor(a*b/c). The product is kept at 256 bits so only the
// quotient has to fit in 128.
func (a U128) MulDiv(b, c U128) U128 {
	if c.IsZero() {
		panic(&ArithmeticError{Op: "muldiv", A: a.String(), B: c.String()})
	}
	var p, q uint256.Int
	p.Mul(&a.v, &b.v)
	q.Div(&p, &c.v)
	return checked("muldiv", a, b, &q, false)
}

// Isqrt returns floor(sqrt(a)).
func (a U128) Isqrt() U128 {
	var z uint256.Int
	z.Sqrt(&a.v)
	return U128{v: z}
}

// Min returns the smaller of a and b.
func Min(a, b U128) U128 {
	if a.v.Lt(&b.v) {
		return a
	}
	return b
}

func (a U128) Cmp(b U128) int { return a.v.Cmp(&b.v) }
func (a U128) Eq(b U128) bool { return a.v.Eq(&b.v) }
func (a U128) Lt(b U128) bool { return a.v.Lt(&b.v) }
func (a U128) Gt(b U128) bool { return a.v.Gt(&b.v) }
func (a U128) Lte(b U128) bool { return !a.v.Gt(&b.v) }
func (a U128) Gte(b U128) bool { return !a.v.Lt(&b.v) }
func (a U128) IsZero() bool { return a.v.IsZero() }
func (a U128) String() string { return a.v.Dec() }
func (a U128) IsUint64() bool { return a.v.IsUint64() }
func (a U128) Uint64() uint64 { return a.v.Uint64() }

// Decimal returns a / 10^exp as a decimal, used for display prices.
func (a U128) Decimal(exp int32) decimal.Decimal {
	return decimal.NewFromBigInt(a.v.ToBig(), -exp)
}

// MarshalJSON encodes the value as a quoted decimal string so clients never lose
// precision to float64.
func (a U128) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number.
func (a *U128) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	u, err := FromDecimal(s)
	if err != nil {
		return err
	}
	*a = u
	return nil
}

// GormDataType stores values as decimal text wide enough for 2^128-1.
func (U128) GormDataType() string { return "varchar(40)" }

// Value implements driver.Valuer. Values are stored as decimal strings.
func (a U128) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *U128) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = U128{}
		return nil
	case string:
		u, err := FromDecimal(v)
		if err != nil {
			return err
		}
		*a = u
		return nil
	case []byte:
		u, err := FromDecimal(string(v))
		if err != nil {
			return err
		}
		*a = u
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("fixedpoint: negative value %d", v)
		}
		*a = New(uint64(v))
		return nil
	default:
		return fmt.Errorf("fixedpoint: cannot scan %T", src)
	}
}
