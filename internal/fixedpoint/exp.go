package fixedpoint

import "github.com/holiman/uint256"

var (
	// log2(e) scaled by 2^184
	log2eQ184 = uint256.MustFromHex("0x171547652b82fe1777d0ffda0d23a7d11d6aef551bad2b4")
	// ln(2) scaled by 2^64
	ln2Q64 = uint256.NewInt(12786308645202655659)
	// input bound: exponents at or above 64.0 are rejected outright
	expInputLimit = new(uint256.Int).Lsh(uint256.NewInt(64), 64)

	mask64 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 64), 1)
)

// expTable[k] = 2^(2^-(k+1)) scaled by 2^128, for the binary decomposition
// of the fractional exponent.
var expTable = [64]*uint256.Int{
	uint256.MustFromHex("0x16a09e667f3bcc908b2fb1366ea957d3e"),
	uint256.MustFromHex("0x1306fe0a31b7152de8d5a46305c85edec"),
	uint256.MustFromHex("0x1172b83c7d517adcdf7c8c50eb14a7920"),
	uint256.MustFromHex("0x10b5586cf9890f6298b92b71842a98364"),
	uint256.MustFromHex("0x1059b0d31585743ae7c548eb68ca417fe"),
	uint256.MustFromHex("0x102c9a3e778060ee6f7caca4f7a29bde9"),
	uint256.MustFromHex("0x10163da9fb33356d84a66ae336dcdfa40"),
	uint256.MustFromHex("0x100b1afa5abcbed6129ab13ec11dc9544"),
	uint256.MustFromHex("0x10058c86da1c09ea1ff19d294cf2f679c"),
	uint256.MustFromHex("0x1002c605e2e8cec506d21bfc89a23a010"),
	uint256.MustFromHex("0x100162f3904051fa128bca9c55c31e5e0"),
	uint256.MustFromHex("0x1000b175effdc76ba38e31671ca939726"),
	uint256.MustFromHex("0x100058ba01fb9f96d6cacd4b180917c3e"),
	uint256.MustFromHex("0x10002c5cc37da9491d0985c348c68e7b3"),
	uint256.MustFromHex("0x1000162e525ee054754457d5995292026"),
	uint256.MustFromHex("0x10000b17255775c040618bf4a4ade83fc"),
	uint256.MustFromHex("0x1000058b91b5bc9ae2eed81e9b7d4cfac"),
	uint256.MustFromHex("0x100002c5c89d5ec6ca4d7c8acc017b7c9"),
	uint256.MustFromHex("0x10000162e43f4f831060e02d839a9d16d"),
	uint256.MustFromHex("0x100000b1721bcfc99d9f890ea06911763"),
	uint256.MustFromHex("0x10000058b90cf1e6d97f9ca14dbcc1628"),
	uint256.MustFromHex("0x1000002c5c863b73f016468f6bac5ca2c"),
	uint256.MustFromHex("0x100000162e430e5a18f6119e3c02282a5"),
	uint256.MustFromHex("0x1000000b1721835514b86e6d96efd1bff"),
	uint256.MustFromHex("0x100000058b90c0b48c6be5df846c5b2f0"),
	uint256.MustFromHex("0x10000002c5c8601cc6b9e94213c72737a"),
	uint256.MustFromHex("0x1000000162e42fff037df38aa2b219f06"),
	uint256.MustFromHex("0x10000000b17217fba9c739aa5819f44f9"),
	uint256.MustFromHex("0x1000000058b90bfcdee5acd3c1cedc823"),
	uint256.MustFromHex("0x100000002c5c85fe31f35a6a30da1be50"),
	uint256.MustFromHex("0x10000000162e42ff0999ce3541b9fffcf"),
	uint256.MustFromHex("0x100000000b17217f80f4ef5aadda45554"),
	uint256.MustFromHex("0x10000000058b90bfbf8479bd5a81b51ad"),
	uint256.MustFromHex("0x1000000002c5c85fdf84bd62ae30a74cc"),
	uint256.MustFromHex("0x100000000162e42fefb2fed257559bdaa"),
	uint256.MustFromHex("0x1000000000b17217f7d5a7716bba4a9af"),
	uint256.MustFromHex("0x100000000058b90bfbe9ddbac5e109ccf"),
	uint256.MustFromHex("0x10000000002c5c85fdf4b15de6f17eb0d"),
	uint256.MustFromHex("0x1000000000162e42fefa494f1478fde05"),
	uint256.MustFromHex("0x10000000000b17217f7d20cf927c8e94c"),
	uint256.MustFromHex("0x1000000000058b90bfbe8f71cb4e4b33e"),
	uint256.MustFromHex("0x100000000002c5c85fdf477b662b26945"),
	uint256.MustFromHex("0x10000000000162e42fefa3ae53369388c"),
	uint256.MustFromHex("0x100000000000b17217f7d1d351a389d40"),
	uint256.MustFromHex("0x10000000000058b90bfbe8e8b2d3d4ede"),
	uint256.MustFromHex("0x1000000000002c5c85fdf4741bea6e77f"),
	uint256.MustFromHex("0x100000000000162e42fefa39fe95583c3"),
	uint256.MustFromHex("0x1000000000000b17217f7d1cfb72b45e2"),
	uint256.MustFromHex("0x100000000000058b90bfbe8e7cc35c3f1"),
	uint256.MustFromHex("0x10000000000002c5c85fdf473e242ea38"),
	uint256.MustFromHex("0x1000000000000162e42fefa39f02b772c"),
	uint256.MustFromHex("0x10000000000000b17217f7d1cf7d83c1a"),
	uint256.MustFromHex("0x1000000000000058b90bfbe8e7bdcbe2e"),
	uint256.MustFromHex("0x100000000000002c5c85fdf473dea871f"),
	uint256.MustFromHex("0x10000000000000162e42fefa39ef44d91"),
	uint256.MustFromHex("0x100000000000000b17217f7d1cf79e949"),
	uint256.MustFromHex("0x10000000000000058b90bfbe8e7bce544"),
	uint256.MustFromHex("0x1000000000000002c5c85fdf473de6eca"),
	uint256.MustFromHex("0x100000000000000162e42fefa39ef366f"),
	uint256.MustFromHex("0x1000000000000000b17217f7d1cf79afa"),
	uint256.MustFromHex("0x100000000000000058b90bfbe8e7bcd6d"),
	uint256.MustFromHex("0x10000000000000002c5c85fdf473de6b2"),
	uint256.MustFromHex("0x1000000000000000162e42fefa39ef358"),
	uint256.MustFromHex("0x10000000000000000b17217f7d1cf79ac"),
}

// Exp computes e^x for a Q64.64 exponent, returning a Q64.64 result.
//
// The exponent is rebased to powers of two: y = x*log2(e) split into an
// integer part n and a 128-bit fraction f. The top 64 bits of f select
// factors from expTable, the bottom 64 bits are folded in as a linear
// ln(2) correction, and the accumulator is shifted by n at the end.
// Fails with ErrOverflow when x >= 64 or when the result does not fit
// the 64-bit integer part.
func Exp(x *uint256.Int) (*uint256.Int, error) {
	if x.Cmp(expInputLimit) >= 0 {
		return nil, ErrOverflow
	}
	if x.IsZero() {
		return new(uint256.Int).Set(One64), nil
	}

	// y = x * log2(e) in Q.128
	y := new(uint256.Int).Mul(x, log2eQ184)
	y.Rsh(y, 120)

	n := new(uint256.Int).Rsh(y, 128).Uint64()
	fHi := new(uint256.Int).And(new(uint256.Int).Rsh(y, 64), mask64).Uint64()
	fLo := new(uint256.Int).And(y, mask64)

	acc := new(uint256.Int).Lsh(uint256.NewInt(1), 127)
	tmp := new(uint256.Int)
	for k := 0; k < 64; k++ {
		if fHi&(1<<(63-k)) != 0 {
			tmp.Mul(acc, expTable[k])
			acc.Rsh(tmp, 128)
		}
	}

	// first-order correction for the residual fraction below 2^-64
	t := tmp.Mul(fLo, ln2Q64)
	t.Rsh(t, 64)
	t.Mul(acc, t)
	t.Rsh(t, 128)
	acc.Add(acc, t)

	if n > 63 {
		return nil, ErrOverflow
	}
	return acc.Rsh(acc, uint(63-n)), nil
}
