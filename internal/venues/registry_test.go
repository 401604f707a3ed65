package venues

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/batch-engine/internal/domain"
)

var (
	v2Factory    = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	v2InitHash   = common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
	usdc         = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth         = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcWethPair = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
)

func TestPairForKnownPool(t *testing.T) {
	got := PairFor(v2Factory, v2InitHash, usdc, weth)
	if got != usdcWethPair {
		t.Errorf("PairFor = %s, want %s", got.Hex(), usdcWethPair.Hex())
	}

	// argument order must not matter
	swapped := PairFor(v2Factory, v2InitHash, weth, usdc)
	if swapped != got {
		t.Errorf("PairFor depends on argument order: %s vs %s", swapped.Hex(), got.Hex())
	}
}

func TestSortTokens(t *testing.T) {
	t0, t1 := SortTokens(weth, usdc)
	if t0 != usdc || t1 != weth {
		t.Errorf("SortTokens = (%s, %s), want usdc first", t0.Hex(), t1.Hex())
	}
}

func TestListVenuesPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry([]Factory{
		{Address: v2Factory, InitCodeHash: v2InitHash, Kind: domain.ReserveBased, FeeTier: 3000},
	})
	r.Register(Factory{
		Address:      common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		InitCodeHash: common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"),
		Kind:         domain.TickBased,
		FeeTier:      500,
	})

	venues := r.ListVenues(usdc, weth)
	if len(venues) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(venues))
	}
	if venues[0].Kind != domain.ReserveBased || venues[1].Kind != domain.TickBased {
		t.Errorf("registration order not preserved: %v, %v", venues[0].Kind, venues[1].Kind)
	}
	if venues[0].Address != usdcWethPair {
		t.Errorf("venue 0 = %s, want %s", venues[0].Address.Hex(), usdcWethPair.Hex())
	}
}
