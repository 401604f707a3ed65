package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type VenueKind uint8

const (
	// ReserveBased venues expose raw constant-product reserves
	ReserveBased VenueKind = iota
	// TickBased venues expose price as a discretized 1.0001^tick
	TickBased
)

func (k VenueKind) String() string {
	switch k {
	case ReserveBased:
		return "reserve"
	case TickBased:
		return "tick"
	default:
		return "UNKNOWN"
	}
}

// VenueDescriptor identifies one liquidity source for a token pair.
type VenueDescriptor struct {
	Address common.Address `json:"address"`
	Kind    VenueKind      `json:"kind"`
	FeeTier uint32         `json:"feeTier"`
}

// SpotReserve is a venue-agnostic price snapshot: reserves normalized to a
// common decimal base plus the Q64.64 spot price. Produced fresh per
// aggregation call, never persisted.
type SpotReserve struct {
	Reserve0  *uint256.Int
	Reserve1  *uint256.Int
	SpotPrice *uint256.Int
}

// ExecutionPrice is one candidate two-hop route (tokenIn -> WETH -> tokenOut)
// with the composed clearing price. Hops against WETH itself collapse to a
// single hop with an identity second leg.
type ExecutionPrice struct {
	Hop1       SpotReserve
	Hop2       SpotReserve
	Price      *uint256.Int
	Venue1     common.Address
	Venue2     common.Address
	Venue1Kind VenueKind
	Venue2Kind VenueKind
	Fee1       uint32
	Fee2       uint32
}

// BatchOrder aggregates admissible orders sharing one venue pair and one
// clearing price. Mutated only during construction; closed batches are
// immutable values handed to settlement.
type BatchOrder struct {
	TokenIn      common.Address
	TokenOut     common.Address
	Venue1       common.Address
	Venue2       common.Address
	Fee1         uint32
	Fee2         uint32
	Price        *uint256.Int
	AmountIn     *uint256.Int
	AmountOutMin *uint256.Int
	Owners       []common.Address
	Shares       []*uint256.Int
	OrderIDs     []string
}

// FeeResult is the fee/reward outcome for one batch. Derived, never stored.
type FeeResult struct {
	FeeRate        *uint256.Int
	ProtocolReward *uint256.Int
	BeaconReward   *uint256.Int
}

// BatchResult reports the settlement outcome of one closed batch. Payouts
// aligns with the batch's owner list; the rounding remainder goes to the
// treasury, never silently lost nor double-paid.
type BatchResult struct {
	Batch     *BatchOrder
	AmountOut *uint256.Int
	Fee       *FeeResult
	Payouts   []*uint256.Int
	Err       error
}
