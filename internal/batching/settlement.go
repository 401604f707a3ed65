package batching

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrSwapFailed               = errors.New("batching: swap failed")
	ErrInsufficientOutputAmount = errors.New("batching: output below minimum")
	ErrUnknownVenue             = errors.New("batching: venue not tracked")
)

// SettlementExecutor performs the actual venue trade for one hop. Calls are
// blocking and atomic: they either fully complete or fail.
type SettlementExecutor interface {
	Swap(ctx context.Context, tokenIn, tokenOut, venue common.Address, feeTier uint32, amountIn, amountOutMin *uint256.Int) (*uint256.Int, error)
}

// RewardSink pays the execution trigger its share of the batch fee.
type RewardSink interface {
	PayReward(beacon, token common.Address, amount *uint256.Int) error
}

type simPool struct {
	token0   common.Address
	token1   common.Address
	reserve0 *uint256.Int
	reserve1 *uint256.Int
	dec0     uint8
	dec1     uint8
}

type simTickPool struct {
	tick int32
	dec0 uint8
	dec1 uint8
}

// SimulatedExecutor settles swaps against in-memory constant-product pools.
// It doubles as the pricing.PoolReader, so the whole engine can run without
// a chain connection.
type SimulatedExecutor struct {
	mu        sync.Mutex
	pools     map[common.Address]*simPool
	tickPools map[common.Address]*simTickPool
}

func NewSimulatedExecutor() *SimulatedExecutor {
	return &SimulatedExecutor{
		pools:     make(map[common.Address]*simPool),
		tickPools: make(map[common.Address]*simTickPool),
	}
}

// SetPool seeds or replaces the reserves for a reserve-based venue. Tokens
// are stored in ascending address order, matching the pair layout.
func (s *SimulatedExecutor) SetPool(venue, tokenA, tokenB common.Address, reserveA, reserveB *uint256.Int, decA, decB uint8) {
	if tokenB.Cmp(tokenA) < 0 {
		tokenA, tokenB = tokenB, tokenA
		reserveA, reserveB = reserveB, reserveA
		decA, decB = decB, decA
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[venue] = &simPool{
		token0:   tokenA,
		token1:   tokenB,
		reserve0: new(uint256.Int).Set(reserveA),
		reserve1: new(uint256.Int).Set(reserveB),
		dec0:     decA,
		dec1:     decB,
	}
}

// SetTickPool seeds a tick-based venue with a fixed tick reading.
func (s *SimulatedExecutor) SetTickPool(venue common.Address, tick int32, dec0, dec1 uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickPools[venue] = &simTickPool{tick: tick, dec0: dec0, dec1: dec1}
}

// Reserves implements pricing.PoolReader.
func (s *SimulatedExecutor) Reserves(_ context.Context, venue common.Address) (*uint256.Int, *uint256.Int, uint8, uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[venue]
	if !ok {
		return nil, nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownVenue, venue.Hex())
	}
	return new(uint256.Int).Set(p.reserve0), new(uint256.Int).Set(p.reserve1), p.dec0, p.dec1, nil
}

// Tick implements pricing.PoolReader.
func (s *SimulatedExecutor) Tick(_ context.Context, venue common.Address) (int32, uint8, uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tickPools[venue]
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrUnknownVenue, venue.Hex())
	}
	return p.tick, p.dec0, p.dec1, nil
}

// Swap executes a constant-product trade with the venue fee applied on the
// input side, honoring amountOutMin.
func (s *SimulatedExecutor) Swap(_ context.Context, tokenIn, tokenOut, venue common.Address, feeTier uint32, amountIn, amountOutMin *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[venue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, venue.Hex())
	}

	var rIn, rOut *uint256.Int
	switch {
	case tokenIn == p.token0 && tokenOut == p.token1:
		rIn, rOut = p.reserve0, p.reserve1
	case tokenIn == p.token1 && tokenOut == p.token0:
		rIn, rOut = p.reserve1, p.reserve0
	default:
		return nil, fmt.Errorf("%w: pair mismatch on %s", ErrSwapFailed, venue.Hex())
	}

	// fee tier is in hundredths of a bip (millionths)
	effectiveIn := new(uint256.Int).Mul(amountIn, uint256.NewInt(uint64(1000000-feeTier)))
	effectiveIn.Div(effectiveIn, uint256.NewInt(1000000))

	// out = rOut * in' / (rIn + in')
	num := new(uint256.Int).Mul(rOut, effectiveIn)
	den := new(uint256.Int).Add(rIn, effectiveIn)
	out := num.Div(num, den)

	if out.IsZero() {
		return nil, fmt.Errorf("%w: zero output on %s", ErrInsufficientOutputAmount, venue.Hex())
	}
	if amountOutMin != nil && out.Cmp(amountOutMin) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrInsufficientOutputAmount, out.Dec(), amountOutMin.Dec())
	}

	rIn.Add(rIn, amountIn)
	rOut.Sub(rOut, out)
	return new(uint256.Int).Set(out), nil
}

// DiscardingRewardSink drops reward payments, for runs where no beacon
// settlement backend is configured.
type DiscardingRewardSink struct{}

func (DiscardingRewardSink) PayReward(common.Address, common.Address, *uint256.Int) error {
	return nil
}

// LedgerRewardSink accrues beacon rewards into an in-memory per-beacon,
// per-token ledger. Withdrawal wiring is a settlement-backend concern.
type LedgerRewardSink struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]*uint256.Int
}

func NewLedgerRewardSink() *LedgerRewardSink {
	return &LedgerRewardSink{balances: make(map[common.Address]map[common.Address]*uint256.Int)}
}

func (s *LedgerRewardSink) PayReward(beacon, token common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, ok := s.balances[beacon]
	if !ok {
		tokens = make(map[common.Address]*uint256.Int)
		s.balances[beacon] = tokens
	}
	bal, ok := tokens[token]
	if !ok {
		bal = new(uint256.Int)
		tokens[token] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// Balance reports the accrued reward for one beacon and token.
func (s *LedgerRewardSink) Balance(beacon, token common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tokens, ok := s.balances[beacon]; ok {
		if bal, ok := tokens[token]; ok {
			return new(uint256.Int).Set(bal)
		}
	}
	return new(uint256.Int)
}

var _ SettlementExecutor = (*SimulatedExecutor)(nil)
