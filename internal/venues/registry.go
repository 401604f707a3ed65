// Package venues maintains the admin-configured set of liquidity sources
// and derives the per-pair pool address for each factory.
package venues

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/batch-engine/internal/domain"
)

// Factory describes one registered venue family: every pair on the factory
// resolves to a deterministic pool address via CREATE2.
type Factory struct {
	Address      common.Address
	InitCodeHash common.Hash
	Kind         domain.VenueKind
	FeeTier      uint32
}

type Registry struct {
	mu        sync.RWMutex
	factories []Factory
}

func NewRegistry(factories []Factory) *Registry {
	return &Registry{factories: factories}
}

// Register appends a venue family. Registration order is the tie-break
// order for best-price selection, so it is preserved.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = append(r.factories, f)
	log.Info().
		Str("factory", f.Address.Hex()).
		Str("kind", f.Kind.String()).
		Uint32("feeTier", f.FeeTier).
		Msg("[venues] registered factory")
}

// ListVenues resolves the pool address for the pair on every registered
// factory, in registration order.
func (r *Registry) ListVenues(tokenA, tokenB common.Address) []domain.VenueDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.VenueDescriptor, 0, len(r.factories))
	for _, f := range r.factories {
		out = append(out, domain.VenueDescriptor{
			Address: PairFor(f.Address, f.InitCodeHash, tokenA, tokenB),
			Kind:    f.Kind,
			FeeTier: f.FeeTier,
		})
	}
	return out
}

// PairFor computes the CREATE2 pool address for a token pair:
// keccak256(0xff ++ factory ++ keccak256(token0 ++ token1) ++ initCodeHash)[12:]
func PairFor(factory common.Address, initCodeHash common.Hash, tokenA, tokenB common.Address) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)

	salt := crypto.Keccak256(token0.Bytes(), token1.Bytes())

	buf := make([]byte, 0, 85)
	buf = append(buf, 0xff)
	buf = append(buf, factory.Bytes()...)
	buf = append(buf, salt...)
	buf = append(buf, initCodeHash.Bytes()...)

	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}

// SortTokens orders a pair by ascending address, the canonical pair layout.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if tokenA.Cmp(tokenB) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}
