package pricing

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/fixedpoint"
)

func dec(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := uint256.FromDecimal(s)
	if err != nil {
		t.Fatalf("bad decimal literal %s: %v", s, err)
	}
	return v
}

func bigDec(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad decimal literal %s", s)
	}
	return v
}

func TestNormalizeReservesScalesUp(t *testing.T) {
	r0 := dec(t, "131610640170334000000000000") // 18 decimals
	r1 := dec(t, "131610640170334")             // 9 decimals

	n0, n1, err := NormalizeReserves(r0, 18, r1, 9)
	if err != nil {
		t.Fatalf("NormalizeReserves error: %v", err)
	}
	if !n0.Eq(r0) {
		t.Errorf("reserve0 changed: %s", n0.Dec())
	}
	if n1.Dec() != "131610640170334000000000" {
		t.Errorf("reserve1 = %s, want 131610640170334000000000", n1.Dec())
	}
}

func TestNormalizeReservesIdempotent(t *testing.T) {
	r0 := dec(t, "123456789")
	r1 := dec(t, "987654321")
	n0, n1, err := NormalizeReserves(r0, 18, r1, 18)
	if err != nil {
		t.Fatalf("NormalizeReserves error: %v", err)
	}
	if !n0.Eq(r0) || !n1.Eq(r1) {
		t.Errorf("equal-decimal reserves changed: %s %s", n0.Dec(), n1.Dec())
	}
}

func TestNormalizeReservesOverflow(t *testing.T) {
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 250)
	_, _, err := NormalizeReserves(huge, 0, uint256.NewInt(1), 70)
	if !errors.Is(err, ErrDecimalOverflow) {
		t.Errorf("expected ErrDecimalOverflow, got %v", err)
	}
}

func TestSpotPriceConstantProduct(t *testing.T) {
	// 2000:1 pool quotes 2000.0 in Q64.64
	price, err := SpotPriceConstantProduct(dec(t, "1000000"), dec(t, "2000000000"))
	if err != nil {
		t.Fatalf("SpotPriceConstantProduct error: %v", err)
	}
	want := new(uint256.Int).Mul(uint256.NewInt(2000), fixedpoint.One64)
	if !price.Eq(want) {
		t.Errorf("price = %s, want %s", price.Dec(), want.Dec())
	}
}

func TestSpotPriceFromTick(t *testing.T) {
	base := dec(t, "1000000000000000000")

	tests := []struct {
		name     string
		tick     int32
		base     *uint256.Int
		baseDec  uint8
		quoteDec uint8
		expected string
	}{
		{"tick zero is identity", 0, base, 18, 18, "1000000000000000000"},
		{"positive tick", 1000, base, 18, 18, "1105165392603232696"},
		{"negative tick", -1000, base, 18, 18, "904841941932768878"},
		{"deep positive tick", 202919, dec(t, "100000000"), 8, 18, "64896248756419616"},
		{"deep negative tick scales to base decimals", -202919, base, 18, 6, "1540921115000000000000"},
		{"max tick", 887272, uint256.NewInt(1), 18, 18, "340256786836388094064849652769727816831"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpotPriceFromTick(tt.tick, tt.base, tt.baseDec, tt.quoteDec)
			if err != nil {
				t.Fatalf("SpotPriceFromTick(%d) error: %v", tt.tick, err)
			}
			if got.Dec() != tt.expected {
				t.Errorf("SpotPriceFromTick(%d) = %s, want %s", tt.tick, got.Dec(), tt.expected)
			}
		})
	}
}

func TestSpotPriceFromTickBounds(t *testing.T) {
	base := uint256.NewInt(1)
	if _, err := SpotPriceFromTick(887273, base, 18, 18); !errors.Is(err, ErrTickOutOfRange) {
		t.Errorf("expected ErrTickOutOfRange above max, got %v", err)
	}
	if _, err := SpotPriceFromTick(-887273, base, 18, 18); !errors.Is(err, ErrTickOutOfRange) {
		t.Errorf("expected ErrTickOutOfRange below min, got %v", err)
	}
}

func TestCalculateAlphaX(t *testing.T) {
	r0Snap := bigDec(t, "2564619576024")
	r1Snap := bigDec(t, "891401836")

	t.Run("price quartered doubles target reserve", func(t *testing.T) {
		// execution reserves at a quarter of the snapshot price: the
		// target reserve is exactly 2*r0Snap, so alphaX == r0Snap<<128
		// up to the isqrt floor residue
		got, err := CalculateAlphaX(r0Snap, r1Snap, bigDec(t, "5129239152048"), bigDec(t, "445700918"))
		if err != nil {
			t.Fatalf("CalculateAlphaX error: %v", err)
		}
		want := bigDec(t, "872694819581220404495633800363948835238737551531542")
		if got.Cmp(want) != 0 {
			t.Errorf("alphaX = %s, want %s", got, want)
		}
	})

	t.Run("small drift", func(t *testing.T) {
		r0Exec := bigDec(t, "2690285935249") // r0Snap * 1049/1000
		r1Exec := new(big.Int).Mul(r0Snap, r1Snap)
		r1Exec.Div(r1Exec, r0Exec)
		got, err := CalculateAlphaX(r0Snap, r1Snap, r0Exec, r1Exec)
		if err != nil {
			t.Fatalf("CalculateAlphaX error: %v", err)
		}
		want := bigDec(t, "42762046173827653629202513227490850154024763082532")
		if got.Cmp(want) != 0 {
			t.Errorf("alphaX = %s, want %s", got, want)
		}
	})

	t.Run("adverse drift clamps to zero", func(t *testing.T) {
		r0Exec := new(big.Int).Sub(r0Snap, big.NewInt(1000000))
		r1Exec := new(big.Int).Mul(r0Snap, r1Snap)
		r1Exec.Div(r1Exec, r0Exec)
		got, err := CalculateAlphaX(r0Snap, r1Snap, r0Exec, r1Exec)
		if err != nil {
			t.Fatalf("CalculateAlphaX error: %v", err)
		}
		if got.Sign() != 0 {
			t.Errorf("adverse drift alphaX = %s, want 0", got)
		}
	})

	t.Run("zero reserves rejected", func(t *testing.T) {
		_, err := CalculateAlphaX(big.NewInt(0), r1Snap, r0Snap, r1Snap)
		if !errors.Is(err, ErrInsufficientLiquidity) {
			t.Errorf("expected ErrInsufficientLiquidity, got %v", err)
		}
	})

	t.Run("unrepresentable execution price", func(t *testing.T) {
		huge := new(big.Int).Lsh(big.NewInt(1), 200)
		_, err := CalculateAlphaX(r0Snap, r1Snap, big.NewInt(1), huge)
		if !errors.Is(err, fixedpoint.ErrOverflow) {
			t.Errorf("expected ErrOverflow, got %v", err)
		}
	})
}

func TestCalculateMaxBeaconReward(t *testing.T) {
	feeRate := dec(t, "18446744073709552") // 0.001 in Q64.64
	alphaX := bigDec(t, "42762046173827653629202513227490850154024763082532")

	got, err := CalculateMaxBeaconReward(feeRate, alphaX)
	if err != nil {
		t.Fatalf("CalculateMaxBeaconReward error: %v", err)
	}
	if got.Dec() != "125666359" {
		t.Errorf("max reward = %s, want 125666359", got.Dec())
	}

	zero, err := CalculateMaxBeaconReward(feeRate, big.NewInt(0))
	if err != nil {
		t.Fatalf("CalculateMaxBeaconReward(0) error: %v", err)
	}
	if !zero.IsZero() {
		t.Errorf("max reward for zero drift = %s, want 0", zero.Dec())
	}
}

func BenchmarkSpotPriceFromTick(b *testing.B) {
	base := uint256.NewInt(1000000000000000000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = SpotPriceFromTick(202919, base, 18, 18)
	}
}

func BenchmarkCalculateAlphaX(b *testing.B) {
	r0s, _ := new(big.Int).SetString("2564619576024", 10)
	r1s, _ := new(big.Int).SetString("891401836", 10)
	r0e, _ := new(big.Int).SetString("5129239152048", 10)
	r1e, _ := new(big.Int).SetString("445700918", 10)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = CalculateAlphaX(r0s, r1s, r0e, r1e)
	}
}
