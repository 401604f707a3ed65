package orderbook

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/hxuan190/batch-engine/internal/domain"
)

var (
	testTokenIn  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTokenOut = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testOwner    = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testOrder(id string, quantity uint64, side domain.OrderSide) *domain.Order {
	return &domain.Order{
		ID:           id,
		Owner:        testOwner,
		TokenIn:      testTokenIn,
		TokenOut:     testTokenOut,
		Quantity:     uint256.NewInt(quantity),
		AmountOutMin: uint256.NewInt(1),
		LimitPrice:   new(uint256.Int).Lsh(uint256.NewInt(2), 64),
		Side:         side,
	}
}

func TestPlaceAndGet(t *testing.T) {
	store := newTestStore(t)

	order := testOrder("order-1", 500, domain.SideBuy)
	if err := store.Place(order); err != nil {
		t.Fatalf("Place: %v", err)
	}

	got, err := store.Get("order-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusOpen {
		t.Errorf("status = %v, want %v", got.Status, domain.StatusOpen)
	}
	if got.Quantity.Uint64() != 500 {
		t.Errorf("quantity = %s, want 500", got.Quantity.Dec())
	}
	if got.Owner != testOwner {
		t.Errorf("owner = %s, want %s", got.Owner.Hex(), testOwner.Hex())
	}
	if got.LimitPrice.Cmp(order.LimitPrice) != 0 {
		t.Errorf("limitPrice = %s, want %s", got.LimitPrice.Dec(), order.LimitPrice.Dec())
	}
}

func TestPlaceRejectsInvalidOrder(t *testing.T) {
	store := newTestStore(t)

	order := testOrder("order-bad", 500, domain.SideBuy)
	order.TokenOut = order.TokenIn
	if err := store.Place(order); err == nil {
		t.Fatal("expected validation error for tokenIn == tokenOut")
	}
	if _, err := store.Get("order-bad"); err == nil {
		t.Fatal("invalid order must not be persisted")
	}
}

func TestFetchOrdersSortedAscending(t *testing.T) {
	store := newTestStore(t)

	for _, o := range []*domain.Order{
		testOrder("order-c", 900, domain.SideBuy),
		testOrder("order-a", 100, domain.SideBuy),
		testOrder("order-b", 400, domain.SideBuy),
	} {
		if err := store.Place(o); err != nil {
			t.Fatalf("Place(%s): %v", o.ID, err)
		}
	}

	orders, err := store.FetchOrders(testTokenIn, testTokenOut, domain.SideBuy)
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("got %d orders, want 3", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i-1].Quantity.Cmp(orders[i].Quantity) > 0 {
			t.Errorf("orders not ascending by quantity: %s before %s",
				orders[i-1].Quantity.Dec(), orders[i].Quantity.Dec())
		}
	}
}

func TestFetchOrdersFilters(t *testing.T) {
	store := newTestStore(t)

	buy := testOrder("order-buy", 100, domain.SideBuy)
	sell := testOrder("order-sell", 200, domain.SideSell)
	otherPair := testOrder("order-other", 300, domain.SideBuy)
	otherPair.TokenOut = common.HexToAddress("0x4444444444444444444444444444444444444444")

	for _, o := range []*domain.Order{buy, sell, otherPair} {
		if err := store.Place(o); err != nil {
			t.Fatalf("Place(%s): %v", o.ID, err)
		}
	}

	orders, err := store.FetchOrders(testTokenIn, testTokenOut, domain.SideBuy)
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "order-buy" {
		t.Fatalf("got %d orders, want exactly order-buy", len(orders))
	}
}

func TestMarkExecuted(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"order-1", "order-2", "order-3"} {
		if err := store.Place(testOrder(id, 100, domain.SideBuy)); err != nil {
			t.Fatalf("Place(%s): %v", id, err)
		}
	}

	if err := store.MarkExecuted([]string{"order-1", "order-3"}); err != nil {
		t.Fatalf("MarkExecuted: %v", err)
	}

	orders, err := store.FetchOrders(testTokenIn, testTokenOut, domain.SideBuy)
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "order-2" {
		t.Fatalf("got %d open orders, want only order-2", len(orders))
	}

	got, err := store.Get("order-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusExecuted {
		t.Errorf("status = %v, want %v", got.Status, domain.StatusExecuted)
	}
}

func TestMarkExecutedUnknownOrder(t *testing.T) {
	store := newTestStore(t)

	if err := store.MarkExecuted([]string{"missing"}); err == nil {
		t.Fatal("expected error for unknown order id")
	}
}

func TestCancel(t *testing.T) {
	store := newTestStore(t)

	if err := store.Place(testOrder("order-1", 100, domain.SideBuy)); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if err := store.Cancel("order-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, err := store.Get("order-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Errorf("status = %v, want %v", got.Status, domain.StatusCancelled)
	}

	orders, err := store.FetchOrders(testTokenIn, testTokenOut, domain.SideBuy)
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("cancelled order still returned as open")
	}
}
