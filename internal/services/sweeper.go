package services

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/batch-engine/internal/batching"
	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/orderbook"
)

const SWEEPER_SERVICE = "sweeper-service"

// TokenPair is one tracked market swept on every execution pass.
type TokenPair struct {
	TokenIn  common.Address
	TokenOut common.Address
}

// Sweeper drains the order book into the matching engine. Each pass runs
// both sides of every tracked pair; orders settled in a pass are marked
// executed so the next pass never re-batches them.
type Sweeper struct {
	store  *orderbook.Store
	engine *batching.MatchingEngine
	beacon common.Address
	logger *ServiceLogger

	mu    sync.Mutex
	pairs []TokenPair
}

func NewSweeper(store *orderbook.Store, engine *batching.MatchingEngine, beacon common.Address) *Sweeper {
	s := &Sweeper{
		store:  store,
		engine: engine,
		beacon: beacon,
	}
	s.logger = NewServiceLogger(s)
	return s
}

func (s *Sweeper) ID() string {
	return SWEEPER_SERVICE
}

// TrackPair adds a market to the sweep set. Idempotent.
func (s *Sweeper) TrackPair(tokenIn, tokenOut common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pairs {
		if p.TokenIn == tokenIn && p.TokenOut == tokenOut {
			return
		}
	}
	s.pairs = append(s.pairs, TokenPair{TokenIn: tokenIn, TokenOut: tokenOut})
	s.logger.Info().
		Str("tokenIn", tokenIn.Hex()).
		Str("tokenOut", tokenOut.Hex()).
		Msg("tracking pair")
}

func (s *Sweeper) trackedPairs() []TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairs := make([]TokenPair, len(s.pairs))
	copy(pairs, s.pairs)
	return pairs
}

// SweepOnce runs one execution pass over every tracked pair and side,
// crediting beacon rewards to the given address. Returns the settlement
// results of every batch closed during the pass.
func (s *Sweeper) SweepOnce(ctx context.Context, beacon common.Address) ([]domain.BatchResult, error) {
	var all []domain.BatchResult

	for _, pair := range s.trackedPairs() {
		for _, side := range []domain.OrderSide{domain.SideBuy, domain.SideSell} {
			results, err := s.sweepMarket(ctx, pair, side, beacon)
			if err != nil {
				s.logger.Error().
					Str("tokenIn", pair.TokenIn.Hex()).
					Str("tokenOut", pair.TokenOut.Hex()).
					Str("side", side.String()).
					Err(err).
					Msg("pass failed for market")
				continue
			}
			all = append(all, results...)
		}
	}
	return all, nil
}

func (s *Sweeper) sweepMarket(ctx context.Context, pair TokenPair, side domain.OrderSide, beacon common.Address) ([]domain.BatchResult, error) {
	orders, err := s.store.FetchOrders(pair.TokenIn, pair.TokenOut, side)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	results, err := s.engine.ExecuteOrders(ctx, orders, beacon)
	if err != nil {
		return nil, err
	}

	var settled []string
	for _, res := range results {
		if res.Err == nil && res.Batch != nil {
			settled = append(settled, res.Batch.OrderIDs...)
		}
	}
	if len(settled) > 0 {
		if err := s.store.MarkExecuted(settled); err != nil {
			return results, err
		}
	}
	return results, nil
}

// Run blocks, sweeping every interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx, s.beacon); err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}
