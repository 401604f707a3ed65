package treasury

import (
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var token = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

func TestAccrueAndWithdraw(t *testing.T) {
	tr := New()
	tr.Accrue(token, uint256.NewInt(100))
	tr.Accrue(token, uint256.NewInt(50))

	if got := tr.Balance(token); got.Uint64() != 150 {
		t.Fatalf("balance = %s, want 150", got.Dec())
	}

	if err := tr.Withdraw(token, uint256.NewInt(120)); err != nil {
		t.Fatalf("Withdraw error: %v", err)
	}
	if got := tr.Balance(token); got.Uint64() != 30 {
		t.Errorf("balance after withdraw = %s, want 30", got.Dec())
	}

	err := tr.Withdraw(token, uint256.NewInt(31))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestAccrueZeroIsNoop(t *testing.T) {
	tr := New()
	tr.Accrue(token, nil)
	tr.Accrue(token, new(uint256.Int))
	if got := tr.Balance(token); !got.IsZero() {
		t.Errorf("balance = %s, want 0", got.Dec())
	}
}

func TestConcurrentAccrue(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Accrue(token, uint256.NewInt(7))
		}()
	}
	wg.Wait()
	if got := tr.Balance(token); got.Uint64() != 700 {
		t.Errorf("balance = %s, want 700", got.Dec())
	}
}
