// Package orderbook persists resting limit orders and serves them to the
// matching engine in the ascending-quantity sequence it requires.
package orderbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/batch-engine/internal/domain"
	"github.com/hxuan190/batch-engine/internal/metrics"
)

const (
	OrdersBucket = "orders"

	DefaultDBPath = "./data/batch-engine.db"
)

var ErrOrderNotFound = errors.New("orderbook: order not found")

type StoredOrder struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	TokenIn      string `json:"tokenIn"`
	TokenOut     string `json:"tokenOut"`
	Quantity     string `json:"quantity"`
	AmountOutMin string `json:"amountOutMin"`
	LimitPrice   string `json:"limitPrice"` // Q64.64 as decimal string
	Side         uint8  `json:"side"`
	VenueFeeIn   uint32 `json:"venueFeeIn,omitempty"`
	VenueFeeOut  uint32 `json:"venueFeeOut,omitempty"`
	Taxed        bool   `json:"taxed,omitempty"`
	TaxBps       uint16 `json:"taxBps,omitempty"`
	Status       uint8  `json:"status"`
}

type Store struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[orderbook] opened database")
	return &Store{db: db, dbPath: dbPath}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Place validates and persists a new open order.
func (s *Store) Place(order *domain.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	order.Status = domain.StatusOpen

	data, err := sonic.Marshal(orderToStored(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order %s: %w", order.ID, err)
	}
	if err := s.db.Set(OrdersBucket, []byte(order.ID), data); err != nil {
		return err
	}
	metrics.OrdersPlaced.Inc()
	metrics.OpenOrders.Inc()
	return nil
}

// Get loads one order by id.
func (s *Store) Get(id string) (*domain.Order, error) {
	data, err := s.db.List(OrdersBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	raw, ok := data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	var stored StoredOrder
	if err := sonic.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order %s: %w", id, err)
	}
	return storedToOrder(&stored)
}

// FetchOrders returns open orders for a pair and side, sorted ascending by
// quantity, ready for the matching engine.
func (s *Store) FetchOrders(tokenIn, tokenOut common.Address, side domain.OrderSide) ([]*domain.Order, error) {
	data, err := s.db.List(OrdersBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(data))
	skipped := 0
	for id, raw := range data {
		var stored StoredOrder
		if err := sonic.Unmarshal(raw, &stored); err != nil {
			log.Error().Str("id", id).Err(err).Msg("[orderbook] failed to unmarshal order, skipping")
			skipped++
			continue
		}
		order, err := storedToOrder(&stored)
		if err != nil {
			log.Error().Str("id", id).Err(err).Msg("[orderbook] failed to convert stored order, skipping")
			skipped++
			continue
		}
		if order.Status != domain.StatusOpen || order.Side != side {
			continue
		}
		if order.TokenIn != tokenIn || order.TokenOut != tokenOut {
			continue
		}
		orders = append(orders, order)
	}
	if skipped > 0 {
		log.Error().Int("skipped", skipped).Msg("[orderbook] order loading completed with errors")
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Quantity.Cmp(orders[j].Quantity) < 0
	})
	return orders, nil
}

// MarkExecuted flips a set of orders to executed in one write batch.
func (s *Store) MarkExecuted(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	data, err := s.db.List(OrdersBucket)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	batch := s.db.NewBatch()
	for _, id := range ids {
		raw, ok := data[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		var stored StoredOrder
		if err := sonic.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("failed to unmarshal order %s: %w", id, err)
		}
		stored.Status = uint8(domain.StatusExecuted)
		updated, err := sonic.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("failed to marshal order %s: %w", id, err)
		}

		value := updated
		op := &boltdb.WriteOperation{
			Bucket: []byte(OrdersBucket),
			Key:    []byte(id),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add order %s to batch: %w", id, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(ids)).Msg("[orderbook] FAILED to execute write batch")
		return err
	}
	metrics.OrdersExecuted.Add(float64(len(ids)))
	metrics.OpenOrders.Sub(float64(len(ids)))
	log.Info().Int("count", len(ids)).Msg("[orderbook] marked orders executed")
	return nil
}

// Cancel flips one order to cancelled.
func (s *Store) Cancel(id string) error {
	order, err := s.Get(id)
	if err != nil {
		return err
	}
	wasOpen := order.Status == domain.StatusOpen
	order.Status = domain.StatusCancelled
	data, err := sonic.Marshal(orderToStored(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order %s: %w", id, err)
	}
	if err := s.db.Set(OrdersBucket, []byte(id), data); err != nil {
		return err
	}
	if wasOpen {
		metrics.OpenOrders.Dec()
	}
	return nil
}

func orderToStored(o *domain.Order) *StoredOrder {
	outMin := "0"
	if o.AmountOutMin != nil {
		outMin = o.AmountOutMin.Dec()
	}
	return &StoredOrder{
		ID:           o.ID,
		Owner:        o.Owner.Hex(),
		TokenIn:      o.TokenIn.Hex(),
		TokenOut:     o.TokenOut.Hex(),
		Quantity:     o.Quantity.Dec(),
		AmountOutMin: outMin,
		LimitPrice:   o.LimitPrice.Dec(),
		Side:         uint8(o.Side),
		VenueFeeIn:   o.VenueFeeIn,
		VenueFeeOut:  o.VenueFeeOut,
		Taxed:        o.Taxed,
		TaxBps:       o.TaxBps,
		Status:       uint8(o.Status),
	}
}

func storedToOrder(s *StoredOrder) (*domain.Order, error) {
	quantity, err := uint256.FromDecimal(s.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", s.Quantity, err)
	}
	outMin, err := uint256.FromDecimal(s.AmountOutMin)
	if err != nil {
		return nil, fmt.Errorf("invalid amountOutMin %q: %w", s.AmountOutMin, err)
	}
	limit, err := uint256.FromDecimal(s.LimitPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid limitPrice %q: %w", s.LimitPrice, err)
	}

	return &domain.Order{
		ID:           s.ID,
		Owner:        common.HexToAddress(s.Owner),
		TokenIn:      common.HexToAddress(s.TokenIn),
		TokenOut:     common.HexToAddress(s.TokenOut),
		Quantity:     quantity,
		AmountOutMin: outMin,
		LimitPrice:   limit,
		Side:         domain.OrderSide(s.Side),
		VenueFeeIn:   s.VenueFeeIn,
		VenueFeeOut:  s.VenueFeeOut,
		Taxed:        s.Taxed,
		TaxBps:       s.TaxBps,
		Status:       domain.OrderStatus(s.Status),
	}, nil
}
