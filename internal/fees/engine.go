// Package fees maps a trade's notional value to a protocol fee rate and
// splits the collected fee between the protocol and the execution trigger.
package fees

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/fixedpoint"
)

// Fee curve calibration, all Q64.64:
// fee(x) = 0.001 + 0.009 / (e^(x/75000) + 1.25), floored at 0.001 for
// notional >= 10^6. Strictly decreasing in x.
var (
	// minFeeRate = ceil(0.001 * 2^64), the asymptotic floor
	minFeeRate = uint256.NewInt(18446744073709552)
	// maxFeeRate = floor(0.005 * 2^64), the curve's supremum
	maxFeeRate = uint256.NewInt(92233720368547758)
	// curveNumerator = 9 * minFeeRate * 2^64 (0.009 widened for the division)
	curveNumerator = new(uint256.Int).Lsh(
		new(uint256.Int).Mul(uint256.NewInt(9), minFeeRate), 64)
	// curveShift = 1.25 * 2^64
	curveShift = uint256.MustFromDecimal("23058430092136939520")
	// decayDenominator controls how fast the fee decays with notional size
	decayDenominator = uint256.NewInt(75000)
	// flatNotional: at or above this notional the curve has flattened out
	flatNotional = uint256.NewInt(1000000)

	// reward split constants
	pointOnePercent = uint256.NewInt(18446744073709551)  // floor(0.001 * 2^64)
	minProtocolPct  = uint256.NewInt(7378697629483820646)  // floor(0.4 * 2^64)
	highFeePct      = uint256.NewInt(11068046444225730969) // floor(0.6 * 2^64)
	hundred         = uint256.NewInt(100)
)

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// CalculateFee returns the Q64.64 proportional fee rate for a trade of the
// given notional value. Larger trades pay a lower rate.
func (e *Engine) CalculateFee(notional *uint256.Int) (*uint256.Int, error) {
	if notional.Cmp(flatNotional) >= 0 {
		return new(uint256.Int).Set(minFeeRate), nil
	}

	exponent, err := fixedpoint.DivUU(notional, decayDenominator)
	if err != nil {
		return nil, err
	}
	decay, err := fixedpoint.Exp(exponent)
	if err != nil {
		return nil, err
	}
	den, err := fixedpoint.Add64x64(decay, curveShift)
	if err != nil {
		return nil, err
	}
	// rounding the quotient up keeps the curve strictly above the floor
	// for every notional below the flat region
	variable, err := fixedpoint.CeilDivUU(curveNumerator, den)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add64x64(minFeeRate, variable)
}

// CalculateReward applies the fee rate to the notional and splits the total
// between the protocol and the beacon. The protocol share interpolates
// between the curve's endpoints and is clamped to [0.4, 0.6]; the two
// payouts never exceed the total collected.
func (e *Engine) CalculateReward(feeRate, notional *uint256.Int) (*domain.FeeResult, error) {
	total, err := fixedpoint.Mul64U(feeRate, notional)
	if err != nil {
		return nil, err
	}

	pct := new(uint256.Int)
	if feeRate.Cmp(maxFeeRate) <= 0 {
		// midpoint between the rate and the curve maximum, nudged by
		// 0.1%, expressed as a percentage of the unit
		pct.Sub(maxFeeRate, feeRate)
		pct.Rsh(pct, 1)
		pct.Add(pct, feeRate)
		pct.Add(pct, pointOnePercent)
		pct.Mul(pct, hundred)
	} else {
		pct.Set(highFeePct)
	}
	if pct.Cmp(minProtocolPct) < 0 {
		pct.Set(minProtocolPct)
	}

	protocolReward, err := fixedpoint.Mul64U(pct, total)
	if err != nil {
		return nil, err
	}
	beaconPct := new(uint256.Int).Sub(fixedpoint.One64, pct)
	beaconReward, err := fixedpoint.Mul64U(beaconPct, total)
	if err != nil {
		return nil, err
	}

	return &domain.FeeResult{
		FeeRate:        new(uint256.Int).Set(feeRate),
		ProtocolReward: protocolReward,
		BeaconReward:   beaconReward,
	}, nil
}
