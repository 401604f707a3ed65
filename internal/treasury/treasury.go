// Package treasury holds the protocol's accrued fee balances. It is the
// only durable state shared across engine invocations, so access is
// serialized behind a single mutex.
package treasury

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
)

var ErrInsufficientBalance = errors.New("treasury: insufficient balance")

type Treasury struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
}

func New() *Treasury {
	return &Treasury{balances: make(map[common.Address]*uint256.Int)}
}

// Accrue credits the protocol balance for a token. Zero amounts are a
// no-op so callers can pass rounding remainders unconditionally.
func (t *Treasury) Accrue(token common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, ok := t.balances[token]
	if !ok {
		bal = new(uint256.Int)
		t.balances[token] = bal
	}
	bal.Add(bal, amount)
}

// Withdraw debits the protocol balance, failing if it would go negative.
func (t *Treasury) Withdraw(token common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, ok := t.balances[token]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s", ErrInsufficientBalance, token.Hex())
	}
	bal.Sub(bal, amount)
	log.Info().
		Str("token", token.Hex()).
		Str("amount", amount.Dec()).
		Str("remaining", bal.Dec()).
		Msg("[treasury] withdrawal")
	return nil
}

// Balance returns a copy of the current balance for a token.
func (t *Treasury) Balance(token common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bal, ok := t.balances[token]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}
