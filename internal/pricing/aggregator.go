// Package pricing turns heterogeneous venue state (constant-product
// reserves, concentrated-liquidity ticks) into uniform fixed-point spot
// prices and computes the price-impact bound used to cap beacon rewards.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/fixedpoint"
)

var (
	ErrDecimalOverflow = errors.New("pricing: decimal scaling overflows 256 bits")
	ErrTickOutOfRange  = errors.New("pricing: tick outside supported bounds")
	ErrNoVenueFound    = errors.New("pricing: no venue quotes this pair")
)

// VenueLister enumerates the registered venues for a pair, in registration
// order. Registration itself is an admin concern owned elsewhere.
type VenueLister interface {
	ListVenues(tokenA, tokenB common.Address) []domain.VenueDescriptor
}

// PoolReader fetches live venue state. Reserves are returned in token0/token1
// order (lower address first), matching the on-chain pair layout.
type PoolReader interface {
	Reserves(ctx context.Context, venue common.Address) (r0, r1 *uint256.Int, dec0, dec1 uint8, err error)
	Tick(ctx context.Context, venue common.Address) (tick int32, dec0, dec1 uint8, err error)
}

type Aggregator struct {
	venues VenueLister
	pools  PoolReader
}

func NewAggregator(venues VenueLister, pools PoolReader) *Aggregator {
	return &Aggregator{venues: venues, pools: pools}
}

// NormalizeReserves scales the reserve with fewer decimals up to the other's
// decimal count. It never scales down, so no precision is lost.
func NormalizeReserves(r0 *uint256.Int, dec0 uint8, r1 *uint256.Int, dec1 uint8) (*uint256.Int, *uint256.Int, error) {
	out0 := new(uint256.Int).Set(r0)
	out1 := new(uint256.Int).Set(r1)
	switch {
	case dec0 < dec1:
		factor, err := pow10(uint(dec1 - dec0))
		if err != nil {
			return nil, nil, err
		}
		if _, overflow := out0.MulOverflow(out0, factor); overflow {
			return nil, nil, fmt.Errorf("%w: reserve0 * 10^%d", ErrDecimalOverflow, dec1-dec0)
		}
	case dec1 < dec0:
		factor, err := pow10(uint(dec0 - dec1))
		if err != nil {
			return nil, nil, err
		}
		if _, overflow := out1.MulOverflow(out1, factor); overflow {
			return nil, nil, fmt.Errorf("%w: reserve1 * 10^%d", ErrDecimalOverflow, dec0-dec1)
		}
	}
	return out0, out1, nil
}

// SpotPriceConstantProduct returns reserve1/reserve0 in Q64.64, the
// instantaneous constant-product price.
func SpotPriceConstantProduct(reserve0, reserve1 *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.DivUU(reserve1, reserve0)
}

// GetAllPrices computes one SpotReserve per registered venue for the pair,
// in registration order. Venues with no pool for the pair are skipped;
// arithmetic failures abort the whole aggregation since no batch can be
// priced without complete data.
func (a *Aggregator) GetAllPrices(ctx context.Context, tokenA, tokenB common.Address) ([]domain.SpotReserve, []common.Address, error) {
	descriptors := a.venues.ListVenues(tokenA, tokenB)
	if len(descriptors) == 0 {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrNoVenueFound, tokenA.Hex(), tokenB.Hex())
	}

	// the pair contract orders reserves by ascending token address
	aIsToken0 := tokenA.Cmp(tokenB) < 0

	reserves := make([]domain.SpotReserve, 0, len(descriptors))
	addrs := make([]common.Address, 0, len(descriptors))

	for _, desc := range descriptors {
		switch desc.Kind {
		case domain.ReserveBased:
			r0, r1, dec0, dec1, err := a.pools.Reserves(ctx, desc.Address)
			if err != nil {
				log.Debug().Str("venue", desc.Address.Hex()).Err(err).Msg("[pricing] venue has no pool, skipping")
				continue
			}
			if r0.IsZero() || r1.IsZero() {
				continue
			}
			n0, n1, err := NormalizeReserves(r0, dec0, r1, dec1)
			if err != nil {
				return nil, nil, err
			}
			if !aIsToken0 {
				n0, n1 = n1, n0
			}
			price, err := SpotPriceConstantProduct(n0, n1)
			if err != nil {
				return nil, nil, err
			}
			reserves = append(reserves, domain.SpotReserve{Reserve0: n0, Reserve1: n1, SpotPrice: price})
			addrs = append(addrs, desc.Address)

		case domain.TickBased:
			tick, dec0, dec1, err := a.pools.Tick(ctx, desc.Address)
			if err != nil {
				log.Debug().Str("venue", desc.Address.Hex()).Err(err).Msg("[pricing] venue has no pool, skipping")
				continue
			}
			if !aIsToken0 {
				tick = -tick
				dec0, dec1 = dec1, dec0
			}
			// quote for a 2^64 base yields the Q64.64 price directly
			price, err := SpotPriceFromTick(tick, fixedpoint.One64, dec0, dec1)
			if err != nil {
				return nil, nil, err
			}
			if price.BitLen() > 128 {
				return nil, nil, fixedpoint.ErrOverflow
			}
			// tick venues carry no explicit reserves; the batcher treats
			// their price as static within a pass
			reserves = append(reserves, domain.SpotReserve{
				Reserve0:  new(uint256.Int),
				Reserve1:  new(uint256.Int),
				SpotPrice: price,
			})
			addrs = append(addrs, desc.Address)
		}
	}

	if len(reserves) == 0 {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrNoVenueFound, tokenA.Hex(), tokenB.Hex())
	}
	return reserves, addrs, nil
}

func pow10(n uint) (*uint256.Int, error) {
	if n > 77 { // 10^78 > 2^256
		return nil, ErrDecimalOverflow
	}
	ten := uint256.NewInt(10)
	out := uint256.NewInt(1)
	for i := uint(0); i < n; i++ {
		if _, overflow := out.MulOverflow(out, ten); overflow {
			return nil, ErrDecimalOverflow
		}
	}
	return out, nil
}
