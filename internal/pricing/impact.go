package pricing

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/fixedpoint"
)

var ErrInsufficientLiquidity = errors.New("pricing: reserves too thin to price")

// CalculateAlphaX computes the hypothetical input amount that would have to
// be added to the snapshot reserves to reproduce the execution-time price,
// via the constant-product invariant k = r0*r1:
//
//	pExec    = r1Exec / r0Exec            (128.128)
//	r0Target = sqrt(k / pExec)
//	alphaX   = r0Target - r0Snap          (128.128)
//
// The result quantifies market drift between submission and execution,
// independent of the batch's own trade. Adverse drift (execution price above
// the snapshot price) clamps to zero. An execution price too large for
// 128.128 fails with ErrOverflow; callers must treat that as "no safe
// reward bound" and reject the batch.
func CalculateAlphaX(r0Snap, r1Snap, r0Exec, r1Exec *big.Int) (*big.Int, error) {
	if r0Snap == nil || r1Snap == nil || r0Exec == nil || r1Exec == nil {
		return nil, ErrInsufficientLiquidity
	}
	if r0Snap.Sign() <= 0 || r1Snap.Sign() <= 0 || r0Exec.Sign() <= 0 || r1Exec.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	pExec := new(big.Int).Lsh(r1Exec, 128)
	pExec.Div(pExec, r0Exec)
	if pExec.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	if pExec.BitLen() > 256 {
		return nil, fixedpoint.ErrOverflow
	}

	k := new(big.Int).Mul(r0Snap, r1Snap)

	// r0Target scaled by 2^128: sqrt((k << 384) / pExec) since
	// sqrt(k * 2^256 / (pExec / 2^128)) = sqrt(k/p) * 2^128
	inner := new(big.Int).Lsh(k, 384)
	inner.Div(inner, pExec)
	r0Target := new(big.Int).Sqrt(inner)

	alphaX := new(big.Int).Lsh(r0Snap, 128)
	alphaX.Sub(r0Target, alphaX)
	if alphaX.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return alphaX, nil
}

// CalculateMaxBeaconReward caps the reward payable to the execution trigger
// at the batch fee rate applied to the integer part of alphaX: profit
// attributable to pre-existing drift is never paid out.
func CalculateMaxBeaconReward(feeRate *uint256.Int, alphaX *big.Int) (*uint256.Int, error) {
	if alphaX == nil || alphaX.Sign() <= 0 {
		return new(uint256.Int), nil
	}
	intPart := new(big.Int).Rsh(alphaX, 128)
	amount, overflow := uint256.FromBig(intPart)
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	return fixedpoint.Mul64U(feeRate, amount)
}
