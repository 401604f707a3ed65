package domain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidOrder = errors.New("order: invalid order")
)

type OrderSide uint8

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "UNKNOWN"
	}
}

type OrderStatus uint8

const (
	StatusOpen OrderStatus = iota
	StatusExecuted
	StatusCancelled
	StatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusExecuted:
		return "executed"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	default:
		return "UNKNOWN"
	}
}

// Order is a resting limit order. Immutable once placed except for status
// transitions driven by the order book; the engine treats it as read-only
// input.
type Order struct {
	ID           string         `json:"id"`
	Owner        common.Address `json:"owner"`
	TokenIn      common.Address `json:"tokenIn"`
	TokenOut     common.Address `json:"tokenOut"`
	Quantity     *uint256.Int   `json:"quantity"`
	AmountOutMin *uint256.Int   `json:"amountOutMin"`
	// LimitPrice is the worst acceptable clearing price in Q64.64
	LimitPrice  *uint256.Int `json:"limitPrice"`
	Side        OrderSide    `json:"side"`
	VenueFeeIn  uint32       `json:"venueFeeIn"`
	VenueFeeOut uint32       `json:"venueFeeOut"`
	Taxed       bool         `json:"taxed"`
	TaxBps      uint16       `json:"taxBps"`
	Status      OrderStatus  `json:"status"`
}

// Validate rejects orders the engine must never batch.
func (o *Order) Validate() error {
	if o.Quantity == nil || o.Quantity.IsZero() {
		return errors.New("order: quantity must be positive")
	}
	if o.TokenIn == o.TokenOut {
		return errors.New("order: tokenIn and tokenOut must differ")
	}
	if o.LimitPrice == nil || o.LimitPrice.IsZero() {
		return errors.New("order: limit price must be positive")
	}
	return nil
}
