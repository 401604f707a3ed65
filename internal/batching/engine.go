// Package batching partitions admissible limit orders into batches that
// each clear at a single venue pair, then settles every batch and splits
// the collected fee between the protocol and the execution trigger.
package batching

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/fees"
	"github.com/hxuan190/batch-engine/internal/fixedpoint"
	"github.com/hxuan190/batch-engine/internal/metrics"
	"github.com/hxuan190/batch-engine/internal/pricing"
	"github.com/hxuan190/batch-engine/internal/treasury"
)

var (
	ErrInvalidBatchOrdering = errors.New("batching: orders not sorted ascending by quantity")
	ErrMixedOrderSet        = errors.New("batching: orders must share token pair and side")
)

// MatchingEngine composes the pricing, fee and impact layers into one
// synchronous execution pass. It holds no per-pass state; the only durable
// resource it touches is the treasury.
type MatchingEngine struct {
	weth       common.Address
	venues     pricing.VenueLister
	aggregator *pricing.Aggregator
	feeEngine  *fees.Engine
	executor   SettlementExecutor
	treasury   *treasury.Treasury
	rewards    RewardSink
}

func NewMatchingEngine(
	weth common.Address,
	venues pricing.VenueLister,
	aggregator *pricing.Aggregator,
	feeEngine *fees.Engine,
	executor SettlementExecutor,
	tr *treasury.Treasury,
	rewards RewardSink,
) *MatchingEngine {
	return &MatchingEngine{
		weth:       weth,
		venues:     venues,
		aggregator: aggregator,
		feeEngine:  feeEngine,
		executor:   executor,
		treasury:   tr,
		rewards:    rewards,
	}
}

// candidate is one venue-pair route with reserves simulated forward as the
// pass folds orders in. Tick venues carry no reserves and stay static.
type candidate struct {
	hop1R0, hop1R1 *uint256.Int
	hop2R0, hop2R1 *uint256.Int
	price1, price2 *uint256.Int
	venue1, venue2 common.Address
	kind1, kind2   domain.VenueKind
	fee1, fee2     uint32
}

func (c *candidate) price() (*uint256.Int, error) {
	return fixedpoint.Mul64x64(c.price1, c.price2)
}

// openBatch tracks the hop-1 reserve snapshot at bind time and the
// simulated reserves at close, feeding the price-impact reward cap.
type openBatch struct {
	order        *domain.BatchOrder
	candidateIdx int
	snap0, snap1 *uint256.Int
}

// ExecuteOrders runs one full batching pass: validate sequencing, aggregate
// prices, greedily partition the order set, then settle every closed batch.
// Orders must share one token pair and side and arrive sorted ascending by
// quantity. An empty order set is a no-op.
func (e *MatchingEngine) ExecuteOrders(ctx context.Context, orders []*domain.Order, beacon common.Address) ([]domain.BatchResult, error) {
	if len(orders) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		metrics.ExecutionDuration.Observe(time.Since(start).Seconds())
	}()

	if err := e.validateSequencing(orders); err != nil {
		return nil, err
	}

	tokenIn := orders[0].TokenIn
	tokenOut := orders[0].TokenOut
	isBuy := orders[0].Side == domain.SideBuy

	candidates, err := e.buildCandidates(ctx, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	batches, err := e.partition(orders, candidates, isBuy)
	if err != nil {
		return nil, err
	}
	metrics.BatchesFormed.Add(float64(len(batches)))

	results := make([]domain.BatchResult, 0, len(batches))
	for _, b := range batches {
		res := e.settleBatch(ctx, b, candidates[b.candidateIdx], beacon)
		if res.Err != nil {
			metrics.BatchesFailed.Inc()
			log.Warn().
				Str("venue1", b.order.Venue1.Hex()).
				Str("amountIn", b.order.AmountIn.Dec()).
				Err(res.Err).
				Msg("[batching] batch settlement failed")
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *MatchingEngine) validateSequencing(orders []*domain.Order) error {
	for i, o := range orders {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("%w: order %s: %v", domain.ErrInvalidOrder, o.ID, err)
		}
		if o.TokenIn != orders[0].TokenIn || o.TokenOut != orders[0].TokenOut || o.Side != orders[0].Side {
			return fmt.Errorf("%w: order %s", ErrMixedOrderSet, o.ID)
		}
		if i > 0 && o.Quantity.Cmp(orders[i-1].Quantity) < 0 {
			return fmt.Errorf("%w: order %s at position %d", ErrInvalidBatchOrdering, o.ID, i)
		}
	}
	return nil
}

// buildCandidates assembles the cross product of hop-1 and hop-2 venues.
// A hop against WETH itself collapses to an identity leg.
func (e *MatchingEngine) buildCandidates(ctx context.Context, tokenIn, tokenOut common.Address) ([]*candidate, error) {
	hop1Reserves, hop1Venues, err := e.legPrices(ctx, tokenIn, e.weth)
	if err != nil {
		return nil, err
	}
	hop2Reserves, hop2Venues, err := e.legPrices(ctx, e.weth, tokenOut)
	if err != nil {
		return nil, err
	}

	candidates := make([]*candidate, 0, len(hop1Reserves)*len(hop2Reserves))
	for i := range hop1Reserves {
		for j := range hop2Reserves {
			candidates = append(candidates, &candidate{
				hop1R0: new(uint256.Int).Set(hop1Reserves[i].Reserve0),
				hop1R1: new(uint256.Int).Set(hop1Reserves[i].Reserve1),
				hop2R0: new(uint256.Int).Set(hop2Reserves[j].Reserve0),
				hop2R1: new(uint256.Int).Set(hop2Reserves[j].Reserve1),
				price1: new(uint256.Int).Set(hop1Reserves[i].SpotPrice),
				price2: new(uint256.Int).Set(hop2Reserves[j].SpotPrice),
				venue1: hop1Venues[i].Address,
				venue2: hop2Venues[j].Address,
				kind1:  hop1Venues[i].Kind,
				kind2:  hop2Venues[j].Kind,
				fee1:   hop1Venues[i].FeeTier,
				fee2:   hop2Venues[j].FeeTier,
			})
		}
	}
	return candidates, nil
}

// legPrices returns the per-venue spot reserves and descriptors for one
// hop, or a single identity leg when the hop starts and ends at WETH.
func (e *MatchingEngine) legPrices(ctx context.Context, from, to common.Address) ([]domain.SpotReserve, []domain.VenueDescriptor, error) {
	if from == to {
		identity := domain.SpotReserve{
			Reserve0:  new(uint256.Int),
			Reserve1:  new(uint256.Int),
			SpotPrice: new(uint256.Int).Set(fixedpoint.One64),
		}
		return []domain.SpotReserve{identity}, []domain.VenueDescriptor{{}}, nil
	}

	reserves, addrs, err := e.aggregator.GetAllPrices(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}

	byAddr := make(map[common.Address]domain.VenueDescriptor)
	for _, d := range e.venues.ListVenues(from, to) {
		byAddr[d.Address] = d
	}
	descriptors := make([]domain.VenueDescriptor, len(addrs))
	for i, addr := range addrs {
		descriptors[i] = byAddr[addr]
	}
	return reserves, descriptors, nil
}

// bestCandidate picks the maximum composed price for buys, the minimum for
// sells. Ties keep the first candidate encountered, so selection is stable
// across passes with identical input.
func bestCandidate(candidates []*candidate, isBuy bool) (int, *uint256.Int, error) {
	bestIdx := -1
	var bestPrice *uint256.Int
	for i, c := range candidates {
		p, err := c.price()
		if err != nil {
			return -1, nil, err
		}
		if p.IsZero() {
			continue
		}
		if bestIdx < 0 {
			bestIdx, bestPrice = i, p
			continue
		}
		if isBuy && p.Cmp(bestPrice) > 0 || !isBuy && p.Cmp(bestPrice) < 0 {
			bestIdx, bestPrice = i, p
		}
	}
	if bestIdx < 0 {
		return -1, nil, pricing.ErrNoVenueFound
	}
	return bestIdx, bestPrice, nil
}

// orderMeetsExecutionPrice is the admissibility gate: a buy clears at or
// below its limit, a sell at or above.
func orderMeetsExecutionPrice(limitPrice, candidatePrice *uint256.Int, isBuy bool) bool {
	if isBuy {
		return candidatePrice.Cmp(limitPrice) <= 0
	}
	return candidatePrice.Cmp(limitPrice) >= 0
}

// partition walks orders in their given ascending-quantity sequence,
// folding admissible ones into a batch bound to the currently-best venue
// pair. A change of best venue pair closes the open batch; each closed
// batch is emitted exactly once.
func (e *MatchingEngine) partition(orders []*domain.Order, candidates []*candidate, isBuy bool) ([]*openBatch, error) {
	var batches []*openBatch
	var current *openBatch

	for _, o := range orders {
		bestIdx, bestPrice, err := bestCandidate(candidates, isBuy)
		if err != nil {
			return nil, err
		}

		if current != nil && current.candidateIdx != bestIdx {
			batches = append(batches, current)
			current = nil
		}

		if !orderMeetsExecutionPrice(o.LimitPrice, bestPrice, isBuy) {
			metrics.OrdersSkipped.Inc()
			log.Debug().
				Str("order", o.ID).
				Str("limit", o.LimitPrice.Dec()).
				Str("candidate", bestPrice.Dec()).
				Msg("[batching] order inadmissible at current best price")
			continue
		}

		c := candidates[bestIdx]
		if current == nil {
			current = &openBatch{
				order: &domain.BatchOrder{
					TokenIn:      o.TokenIn,
					TokenOut:     o.TokenOut,
					Venue1:       c.venue1,
					Venue2:       c.venue2,
					Fee1:         c.fee1,
					Fee2:         c.fee2,
					Price:        new(uint256.Int).Set(bestPrice),
					AmountIn:     new(uint256.Int),
					AmountOutMin: new(uint256.Int),
				},
				candidateIdx: bestIdx,
				snap0:        new(uint256.Int).Set(c.hop1R0),
				snap1:        new(uint256.Int).Set(c.hop1R1),
			}
		}

		current.order.AmountIn.Add(current.order.AmountIn, o.Quantity)
		if o.AmountOutMin != nil {
			current.order.AmountOutMin.Add(current.order.AmountOutMin, o.AmountOutMin)
		}
		current.order.Owners = append(current.order.Owners, o.Owner)
		current.order.Shares = append(current.order.Shares, new(uint256.Int).Set(o.Quantity))
		current.order.OrderIDs = append(current.order.OrderIDs, o.ID)

		if err := c.consume(o.Quantity); err != nil {
			return nil, err
		}
	}

	if current != nil {
		batches = append(batches, current)
	}
	return batches, nil
}

// consume pushes an order's quantity through the candidate's simulated
// reserves via the constant-product invariant and refreshes its spot
// prices. Legs without reserves (identity and tick venues) keep a static
// price and forward the amount at that price.
func (c *candidate) consume(quantity *uint256.Int) error {
	var hop1Out *uint256.Int
	var err error
	if c.hop1R0.IsZero() {
		hop1Out, err = fixedpoint.Mul64U(c.price1, quantity)
		if err != nil {
			return err
		}
	} else {
		hop1Out, err = simulateLeg(c.hop1R0, c.hop1R1, quantity)
		if err != nil {
			return err
		}
		if c.price1, err = fixedpoint.DivUU(c.hop1R1, c.hop1R0); err != nil {
			return err
		}
	}

	if c.hop2R0.IsZero() {
		return nil
	}
	if _, err = simulateLeg(c.hop2R0, c.hop2R1, hop1Out); err != nil {
		return err
	}
	c.price2, err = fixedpoint.DivUU(c.hop2R1, c.hop2R0)
	return err
}

// simulateLeg applies amountIn to constant-product reserves in place,
// rounding the output reserve up so the invariant is never understated.
// Returns the implied output amount. Zero reserves are left untouched.
func simulateLeg(r0, r1 *uint256.Int, amountIn *uint256.Int) (*uint256.Int, error) {
	if r0.IsZero() || r1.IsZero() {
		return new(uint256.Int), nil
	}
	k := new(big.Int).Mul(r0.ToBig(), r1.ToBig())
	r0.Add(r0, amountIn)

	newR1 := new(big.Int).Add(k, new(big.Int).Sub(r0.ToBig(), big.NewInt(1)))
	newR1.Div(newR1, r0.ToBig())
	out, overflow := uint256.FromBig(newR1)
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	produced := new(uint256.Int).Sub(r1, out)
	r1.Set(out)
	return produced, nil
}
