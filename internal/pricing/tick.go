package pricing

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/fixedpoint"
)

// Supported tick bounds: 1.0001^887272 is the largest price representable
// as a 128.128 square root ratio.
const (
	MinTick = -887272
	MaxTick = 887272
)

var (
	u256Max = new(uint256.Int).Not(new(uint256.Int))
	q128    = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
)

// sqrtTickTable[k] = floor(2^128 / sqrt(1.0001)^(2^k)). Accumulating the
// negative exponent keeps every factor below one, so the running product
// never overflows 256 bits; positive ticks invert the result once at the
// end.
var sqrtTickTable = [20]*uint256.Int{
	uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	uint256.MustFromHex("0xfff97272373d413259a46990580e2139"),
	uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcb"),
	uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941ccf"),
	uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926643"),
	uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254bf"),
	uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52860"),
	uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3052"),
	uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a3"),
	uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e53"),
	uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f2"),
	uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d8"),
	uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e4"),
	uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f6"),
	uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa5"),
	uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc8"),
	uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
	uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe97"),
	uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
}

// sqrtRatioAtTick returns sqrt(1.0001)^tick in Q128.128 by repeated
// squaring over the binary representation of |tick|.
func sqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	abs := tick
	if abs < 0 {
		abs = -abs
	}
	if abs > MaxTick {
		return nil, fmt.Errorf("%w: %d", ErrTickOutOfRange, tick)
	}

	s := new(uint256.Int).Set(q128)
	tmp := new(uint256.Int)
	for k := 0; k < len(sqrtTickTable); k++ {
		if abs&(1<<k) != 0 {
			tmp.Mul(s, sqrtTickTable[k])
			s.Rsh(tmp, 128)
		}
	}
	if tick > 0 {
		s.Div(u256Max, s)
	}
	return s, nil
}

// SpotPriceFromTick converts a base-token amount into a quote-token amount
// at the price 1.0001^tick. When the base token carries more decimals than
// the quote token the result is scaled up to the base's decimal count, so
// precision is never discarded.
func SpotPriceFromTick(tick int32, baseAmount *uint256.Int, baseDecimals, quoteDecimals uint8) (*uint256.Int, error) {
	s, err := sqrtRatioAtTick(tick)
	if err != nil {
		return nil, err
	}

	// two mul-shifts against the sqrt ratio: base * ratio^2 / 2^256
	sb := s.ToBig()
	q := new(big.Int).Mul(baseAmount.ToBig(), sb)
	q.Rsh(q, 128)
	q.Mul(q, sb)
	q.Rsh(q, 128)

	if baseDecimals > quoteDecimals {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(baseDecimals-quoteDecimals)), nil)
		q.Mul(q, scale)
	}
	if q.BitLen() > 256 {
		return nil, fixedpoint.ErrOverflow
	}
	out, _ := uint256.FromBig(q)
	return out, nil
}
