package batching

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/fixedpoint"
	"github.com/hxuan190/batch-engine/internal/metrics"
	"github.com/hxuan190/batch-engine/internal/pricing"
)

// settleBatch runs one closed batch to completion: hop-1 swap, fee
// deduction, reward split, hop-2 swap, pro-rata distribution. Failures are
// confined to the batch's result; sibling batches in the same pass are
// unaffected.
func (e *MatchingEngine) settleBatch(ctx context.Context, b *openBatch, c *candidate, beacon common.Address) domain.BatchResult {
	res := domain.BatchResult{Batch: b.order}

	wethAmount, err := e.hopSwap(ctx, b.order.TokenIn, e.weth, b.order.Venue1, b.order.Fee1, b.order.AmountIn, nil)
	if err != nil {
		res.Err = err
		return res
	}

	feeRate, err := e.feeEngine.CalculateFee(wethAmount)
	if err != nil {
		res.Err = err
		return res
	}
	fee, err := e.feeEngine.CalculateReward(feeRate, wethAmount)
	if err != nil {
		res.Err = err
		return res
	}

	beaconReward, err := e.capBeaconReward(b, c, feeRate, fee.BeaconReward)
	if err != nil {
		// no safe reward bound: reject this batch
		res.Err = err
		return res
	}

	totalFee, err := fixedpoint.Mul64U(feeRate, wethAmount)
	if err != nil {
		res.Err = err
		return res
	}
	if totalFee.Cmp(wethAmount) >= 0 {
		res.Err = ErrInsufficientOutputAmount
		return res
	}
	postFee := new(uint256.Int).Sub(wethAmount, totalFee)

	amountOut, err := e.hopSwap(ctx, e.weth, b.order.TokenOut, b.order.Venue2, b.order.Fee2, postFee, b.order.AmountOutMin)
	if err != nil {
		res.Err = err
		return res
	}

	payouts, distributed, err := distribute(b.order, amountOut)
	if err != nil {
		res.Err = err
		return res
	}

	// everything the beacon does not take, plus the distribution
	// remainder, accrues to the protocol
	protocolTake := new(uint256.Int).Sub(totalFee, beaconReward)
	e.treasury.Accrue(e.weth, protocolTake)
	remainder := new(uint256.Int).Sub(amountOut, distributed)
	e.treasury.Accrue(b.order.TokenOut, remainder)

	if err := e.rewards.PayReward(beacon, e.weth, beaconReward); err != nil {
		res.Err = err
		return res
	}

	fee.BeaconReward = beaconReward
	fee.ProtocolReward = protocolTake
	res.AmountOut = amountOut
	res.Fee = fee
	res.Payouts = payouts

	metrics.BatchesSettled.Inc()
	log.Info().
		Str("tokenIn", b.order.TokenIn.Hex()).
		Str("tokenOut", b.order.TokenOut.Hex()).
		Int("orders", len(b.order.OrderIDs)).
		Str("amountIn", b.order.AmountIn.Dec()).
		Str("amountOut", amountOut.Dec()).
		Str("beaconReward", beaconReward.Dec()).
		Msg("[batching] batch settled")
	return res
}

// hopSwap performs one leg, treating the zero venue as the WETH identity
// passthrough.
func (e *MatchingEngine) hopSwap(ctx context.Context, tokenIn, tokenOut, venue common.Address, feeTier uint32, amountIn, amountOutMin *uint256.Int) (*uint256.Int, error) {
	if venue == (common.Address{}) {
		if amountOutMin != nil && amountIn.Cmp(amountOutMin) < 0 {
			return nil, ErrInsufficientOutputAmount
		}
		return new(uint256.Int).Set(amountIn), nil
	}
	return e.executor.Swap(ctx, tokenIn, tokenOut, venue, feeTier, amountIn, amountOutMin)
}

// capBeaconReward bounds the trigger's reward when the hop-1 reserves
// drifted between batch open and close. Without at least one whole token
// unit of implied drift the computed split stands; with drift the reward
// cannot exceed the fee applied to the drift capital.
func (e *MatchingEngine) capBeaconReward(b *openBatch, c *candidate, feeRate, beaconReward *uint256.Int) (*uint256.Int, error) {
	if b.snap0.IsZero() || c.hop1R0.IsZero() {
		return new(uint256.Int).Set(beaconReward), nil
	}
	alphaX, err := pricing.CalculateAlphaX(b.snap0.ToBig(), b.snap1.ToBig(), c.hop1R0.ToBig(), c.hop1R1.ToBig())
	if err != nil {
		return nil, err
	}
	if alphaX.BitLen() <= 128 {
		// sub-unit residue, not genuine drift
		return new(uint256.Int).Set(beaconReward), nil
	}
	maxReward, err := pricing.CalculateMaxBeaconReward(feeRate, alphaX)
	if err != nil {
		return nil, err
	}
	if beaconReward.Cmp(maxReward) > 0 {
		metrics.RewardsCapped.Inc()
		return maxReward, nil
	}
	return new(uint256.Int).Set(beaconReward), nil
}

// distribute splits the hop-2 output across owners proportional to their
// contributed share of the batch input. Rounds down per owner; the caller
// attributes the remainder to the treasury.
func distribute(b *domain.BatchOrder, amountOut *uint256.Int) ([]*uint256.Int, *uint256.Int, error) {
	payouts := make([]*uint256.Int, len(b.Shares))
	distributed := new(uint256.Int)
	for i, share := range b.Shares {
		ratio, err := fixedpoint.DivUU(share, b.AmountIn)
		if err != nil {
			return nil, nil, err
		}
		payout, err := fixedpoint.Mul64U(ratio, amountOut)
		if err != nil {
			return nil, nil, err
		}
		payouts[i] = payout
		distributed.Add(distributed, payout)
	}
	return payouts, distributed, nil
}
