package fees

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/fixedpoint"
)

func totalFee(rate, notional *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.Mul64U(rate, notional)
}

func dec(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := uint256.FromDecimal(s)
	if err != nil {
		t.Fatalf("bad decimal literal %s: %v", s, err)
	}
	return v
}

func TestCalculateFeeGoldenValues(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		notional uint64
		expected string
	}{
		{100000, "51363403165874997"},
		{150000, "37664201948990181"},
		{200000, "29060577804403466"},
	}

	for _, tt := range tests {
		rate, err := engine.CalculateFee(uint256.NewInt(tt.notional))
		if err != nil {
			t.Fatalf("CalculateFee(%d) error: %v", tt.notional, err)
		}
		if rate.Dec() != tt.expected {
			t.Errorf("CalculateFee(%d) = %s, want %s", tt.notional, rate.Dec(), tt.expected)
		}
	}
}

func TestCalculateFeeMonotonicallyDecreasing(t *testing.T) {
	engine := NewEngine()

	prev := new(uint256.Int)
	for i, notional := range []uint64{50, 1000, 25000, 100000, 200000, 500000, 999999} {
		rate, err := engine.CalculateFee(uint256.NewInt(notional))
		if err != nil {
			t.Fatalf("CalculateFee(%d) error: %v", notional, err)
		}
		if i > 0 && rate.Cmp(prev) >= 0 {
			t.Fatalf("fee not decreasing at notional %d: %s >= %s", notional, rate.Dec(), prev.Dec())
		}
		prev.Set(rate)
	}
}

func TestCalculateFeeFlatRegion(t *testing.T) {
	engine := NewEngine()

	for _, notional := range []uint64{1000000, 2000000, 1 << 40} {
		rate, err := engine.CalculateFee(uint256.NewInt(notional))
		if err != nil {
			t.Fatalf("CalculateFee(%d) error: %v", notional, err)
		}
		if !rate.Eq(minFeeRate) {
			t.Errorf("CalculateFee(%d) = %s, want floor %s", notional, rate.Dec(), minFeeRate.Dec())
		}
	}
}

func TestCalculateFeeStaysInBand(t *testing.T) {
	engine := NewEngine()

	// the curve lives in (0.001, 0.005]
	for _, notional := range []uint64{1, 10, 100, 1000, 10000, 100000, 999999} {
		rate, err := engine.CalculateFee(uint256.NewInt(notional))
		if err != nil {
			t.Fatalf("CalculateFee(%d) error: %v", notional, err)
		}
		if rate.Cmp(minFeeRate) <= 0 {
			t.Errorf("CalculateFee(%d) = %s at or below floor", notional, rate.Dec())
		}
		if rate.Cmp(maxFeeRate) > 0 {
			t.Errorf("CalculateFee(%d) = %s above 0.005", notional, rate.Dec())
		}
	}
}

func TestCalculateRewardGolden(t *testing.T) {
	engine := NewEngine()

	result, err := engine.CalculateReward(dec(t, "18446744073709550"), uint256.NewInt(100000))
	if err != nil {
		t.Fatalf("CalculateReward error: %v", err)
	}
	if result.ProtocolReward.Uint64() != 39 {
		t.Errorf("protocol reward = %s, want 39", result.ProtocolReward.Dec())
	}
	if result.BeaconReward.Uint64() != 59 {
		t.Errorf("beacon reward = %s, want 59", result.BeaconReward.Dec())
	}
}

func TestCalculateRewardConservation(t *testing.T) {
	engine := NewEngine()

	notionals := []uint64{1, 537, 100000, 999999, 5000000}
	for _, n := range notionals {
		notional := uint256.NewInt(n)
		rate, err := engine.CalculateFee(notional)
		if err != nil {
			t.Fatalf("CalculateFee(%d) error: %v", n, err)
		}
		result, err := engine.CalculateReward(rate, notional)
		if err != nil {
			t.Fatalf("CalculateReward(%d) error: %v", n, err)
		}

		total, err := totalFee(rate, notional)
		if err != nil {
			t.Fatalf("total fee error: %v", err)
		}
		sum := new(uint256.Int).Add(result.ProtocolReward, result.BeaconReward)
		if sum.Cmp(total) > 0 {
			t.Errorf("notional %d: rewards %s exceed total fee %s", n, sum.Dec(), total.Dec())
		}
	}
}

func BenchmarkCalculateFee(b *testing.B) {
	engine := NewEngine()
	notional := uint256.NewInt(100000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = engine.CalculateFee(notional)
	}
}
