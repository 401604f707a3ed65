// Package fixedpoint implements the Q64.64 and Q128.128 arithmetic used by
// the pricing, fee and batching layers. All operations are deterministic,
// round toward zero and detect overflow through widened intermediates
// instead of silently truncating.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	ErrOverflow       = errors.New("fixedpoint: result exceeds representable range")
)

// Pre-computed constants (avoid allocation on every call)
var (
	// One64 = 2^64, the unit value in Q64.64
	One64 = new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	// One128 = 2^128, the unit value in Q128.128
	One128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	// big.Int versions for the widened fallback paths
	bigQ64  = new(big.Int).Lsh(big.NewInt(1), 64)
	bigQ128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

// DivUU divides two unsigned integers into a Q64.64 quotient:
// floor(a * 2^64 / b). The quotient must fit in 128 bits.
func DivUU(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	if a.BitLen() <= 192 {
		q := new(uint256.Int).Lsh(a, 64)
		q.Div(q, b)
		if q.BitLen() > 128 {
			return nil, ErrOverflow
		}
		return q, nil
	}
	// numerator exceeds 256 bits after the shift, widen through big.Int
	num := new(big.Int).Lsh(a.ToBig(), 64)
	num.Div(num, b.ToBig())
	if num.BitLen() > 128 {
		return nil, ErrOverflow
	}
	q, _ := uint256.FromBig(num)
	return q, nil
}

// Mul64x64 multiplies two Q64.64 values: floor(a * b / 2^64).
// Both operands and the result must fit in 128 bits.
func Mul64x64(a, b *uint256.Int) (*uint256.Int, error) {
	if a.BitLen() > 128 || b.BitLen() > 128 {
		return nil, ErrOverflow
	}
	p := new(uint256.Int).Mul(a, b)
	p.Rsh(p, 64)
	if p.BitLen() > 128 {
		return nil, ErrOverflow
	}
	return p, nil
}

// Add64x64 adds two Q64.64 values with an overflow check on the 128-bit
// representable range.
func Add64x64(a, b *uint256.Int) (*uint256.Int, error) {
	s := new(uint256.Int).Add(a, b)
	if s.BitLen() > 128 || s.Cmp(a) < 0 {
		return nil, ErrOverflow
	}
	return s, nil
}

// Div128x128 divides two Q128.128 values: floor(a * 2^128 / b).
func Div128x128(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	num := new(big.Int).Lsh(a.ToBig(), 128)
	num.Div(num, b.ToBig())
	if num.BitLen() > 256 {
		return nil, ErrOverflow
	}
	q, _ := uint256.FromBig(num)
	return q, nil
}

// Mul64U applies a Q64.64 rate to an integer amount:
// floor(rate * amount / 2^64).
func Mul64U(rate, amount *uint256.Int) (*uint256.Int, error) {
	if rate.BitLen()+amount.BitLen() <= 256 {
		p := new(uint256.Int).Mul(rate, amount)
		return p.Rsh(p, 64), nil
	}
	p := new(big.Int).Mul(rate.ToBig(), amount.ToBig())
	p.Rsh(p, 64)
	if p.BitLen() > 256 {
		return nil, ErrOverflow
	}
	r, _ := uint256.FromBig(p)
	return r, nil
}

// Mul128U applies a Q128.128 rate to an integer amount:
// floor(rate * amount / 2^128).
func Mul128U(rate, amount *uint256.Int) (*uint256.Int, error) {
	if rate.BitLen()+amount.BitLen() <= 256 {
		p := new(uint256.Int).Mul(rate, amount)
		return p.Rsh(p, 128), nil
	}
	p := new(big.Int).Mul(rate.ToBig(), amount.ToBig())
	p.Rsh(p, 128)
	if p.BitLen() > 256 {
		return nil, ErrOverflow
	}
	r, _ := uint256.FromBig(p)
	return r, nil
}

// CeilDivUU divides with rounding up instead of down. Used where rounding
// down would let a fee quotient hit zero.
func CeilDivUU(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	q := new(uint256.Int).Div(a, b)
	rem := new(uint256.Int).Mod(a, b)
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}
	return q, nil
}
