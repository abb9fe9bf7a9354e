// internal/service/inventory/application/reservation_manager_test.go
package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"luzimarket/internal/service/inventory/domain"
)

func newManager(products *fakeProductRepo, reservations *fakeReservationRepo) *ReservationManager {
	validator := NewCartStockValidator(products, reservations, testTracer())
	return NewReservationManager(validator, reservations, products, nil, nil, 0, testTracer())
}

func TestReserveCreatesReservationsForEachItem(t *testing.T) {
	products := newFakeProductRepo(activeProduct("p1", 10), activeProduct("p2", 5))
	reservations := &fakeReservationRepo{}
	manager := newManager(products, reservations)

	result, err := manager.Reserve(context.Background(), []domain.CartItem{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 2},
	}, "u1", "sess-1", domain.ReservationTypeCheckout, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected OK, shortfalls: %+v", result.Shortfalls)
	}
	if len(result.ReservationIDs) != 2 {
		t.Fatalf("expected 2 reservation IDs, got %d", len(result.ReservationIDs))
	}
	if result.ExpiresAt.Before(time.Now().Add(14 * time.Minute)) {
		t.Fatalf("expected default 15 minute TTL, expires at %v", result.ExpiresAt)
	}
	if reservations.activeCount() != 2 {
		t.Fatalf("expected 2 active reservations, got %d", reservations.activeCount())
	}

	// 预占不碰台账
	if products.stockOf("p1") != 10 || products.stockOf("p2") != 5 {
		t.Fatal("reservation must not change ledger stock")
	}
}

func TestReserveRequiresSessionID(t *testing.T) {
	manager := newManager(newFakeProductRepo(activeProduct("p1", 10)), &fakeReservationRepo{})

	_, err := manager.Reserve(context.Background(), []domain.CartItem{{ProductID: "p1", Quantity: 1}}, "u1", "", domain.ReservationTypeCheckout, 0)
	if !errors.Is(err, domain.ErrInvalidReservation) {
		t.Fatalf("expected ErrInvalidReservation, got %v", err)
	}
}

// 台账 10 件、已预占 5 件：再要 5 件成功，再要 6 件拒绝。
func TestReserveRespectsExistingReservations(t *testing.T) {
	products := newFakeProductRepo(activeProduct("p1", 10))
	reservations := &fakeReservationRepo{}
	manager := newManager(products, reservations)

	first, err := manager.Reserve(context.Background(), []domain.CartItem{{ProductID: "p1", Quantity: 5}}, "u1", "sess-1", domain.ReservationTypeCheckout, time.Hour)
	if err != nil || !first.OK {
		t.Fatalf("first reservation should succeed: ok=%v err=%v", first != nil && first.OK, err)
	}

	second, err := manager.Reserve(context.Background(), []domain.CartItem{{ProductID: "p1", Quantity: 6}}, "u2", "sess-2", domain.ReservationTypeCheckout, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.OK {
		t.Fatal("expected rejection, only 5 units available")
	}
	if got := second.Shortfalls[0].AvailableStock; got != 5 {
		t.Fatalf("expected available 5, got %d", got)
	}

	third, err := manager.Reserve(context.Background(), []domain.CartItem{{ProductID: "p1", Quantity: 5}}, "u3", "sess-3", domain.ReservationTypeCheckout, time.Hour)
	if err != nil || !third.OK {
		t.Fatalf("reserving the remaining 5 should succeed: err=%v", err)
	}
}

// 批量插入失败时不能留下部分预占（由事务保证），并向上返回基础设施错误。
func TestReserveAtomicFailureLeavesNothing(t *testing.T) {
	products := newFakeProductRepo(activeProduct("p1", 10), activeProduct("p2", 10))
	reservations := &fakeReservationRepo{createErr: errors.New("connection reset")}
	manager := newManager(products, reservations)

	_, err := manager.Reserve(context.Background(), []domain.CartItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
	}, "u1", "sess-1", domain.ReservationTypeCheckout, time.Hour)
	if err == nil {
		t.Fatal("expected infrastructure error")
	}
	if reservations.activeCount() != 0 {
		t.Fatalf("expected no reservations persisted, got %d", reservations.activeCount())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	products := newFakeProductRepo(activeProduct("p1", 10))
	reservations := &fakeReservationRepo{}
	manager := newManager(products, reservations)

	if _, err := manager.Reserve(context.Background(), []domain.CartItem{{ProductID: "p1", Quantity: 3}}, "u1", "sess-1", domain.ReservationTypeCheckout, time.Hour); err != nil {
		t.Fatal(err)
	}

	if err := manager.Release(context.Background(), "sess-1", "u1"); err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	if reservations.activeCount() != 0 {
		t.Fatal("expected reservations released")
	}

	// 重复释放与释放不存在的会话都不是错误
	if err := manager.Release(context.Background(), "sess-1", "u1"); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}
	if err := manager.Release(context.Background(), "never-existed", ""); err != nil {
		t.Fatalf("releasing unknown session should be a no-op: %v", err)
	}
}

func TestCleanupExpiredCollectsOnlyExpired(t *testing.T) {
	products := newFakeProductRepo(activeProduct("p1", 10))
	reservations := &fakeReservationRepo{}
	manager := newManager(products, reservations)

	live, _ := domain.NewStockReservation("p1", 1, "u1", "sess-live", domain.ReservationTypeCheckout, time.Hour)
	stale, _ := domain.NewStockReservation("p1", 2, "u2", "sess-stale", domain.ReservationTypeCheckout, time.Hour)
	stale.ExpiresAt = time.Now().Add(-time.Second)
	reservations.add(live)
	reservations.add(stale)

	expired, err := manager.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired reservation collected, got %d", expired)
	}
	if reservations.activeCount() != 1 {
		t.Fatalf("live reservation must survive the sweep, active=%d", reservations.activeCount())
	}
}

// 抢不到清扫锁时跳过而不是报错，另一个实例正在清扫。
func TestCleanupExpiredSkipsWhenLockHeld(t *testing.T) {
	products := newFakeProductRepo(activeProduct("p1", 10))
	reservations := &fakeReservationRepo{}
	stale, _ := domain.NewStockReservation("p1", 2, "u1", "sess-stale", domain.ReservationTypeCheckout, time.Hour)
	stale.ExpiresAt = time.Now().Add(-time.Second)
	reservations.add(stale)

	validator := NewCartStockValidator(products, reservations, testTracer())
	manager := NewReservationManager(validator, reservations, products, nil, blockedLock{}, 0, testTracer())

	expired, err := manager.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("lock contention must not surface as error: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected sweep skipped, got %d collected", expired)
	}
}

type blockedLock struct{}

func (blockedLock) Lock() error   { return errors.New("lock held by another instance") }
func (blockedLock) Unlock() error { return nil }

func TestGetAvailableStock(t *testing.T) {
	products := newFakeProductRepo(activeProduct("p1", 10))
	reservations := &fakeReservationRepo{}
	res, _ := domain.NewStockReservation("p1", 4, "u1", "sess-1", domain.ReservationTypeCheckout, time.Hour)
	reservations.add(res)
	manager := newManager(products, reservations)

	available, err := manager.GetAvailableStock(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 6 {
		t.Fatalf("expected 6 available, got %d", available)
	}

	// 不存在的商品返回 0 而不是错误
	available, err = manager.GetAvailableStock(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error for missing product: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected 0 for missing product, got %d", available)
	}
}

// 热点商品走防护层：额度不足时直接拒绝，已占到的额度要还回去。
func TestReserveHotProductGuard(t *testing.T) {
	products := newFakeProductRepo(activeProduct("hot", 100), activeProduct("cold", 100))
	reservations := &fakeReservationRepo{}
	guard := newFakeHotGuard()
	if err := guard.Prime(context.Background(), "hot", 3); err != nil {
		t.Fatal(err)
	}

	validator := NewCartStockValidator(products, reservations, testTracer())
	manager := NewReservationManager(validator, reservations, products, guard, nil, 0, testTracer())

	ok, err := manager.Reserve(context.Background(), []domain.CartItem{
		{ProductID: "cold", Quantity: 1},
		{ProductID: "hot", Quantity: 2},
	}, "u1", "sess-1", domain.ReservationTypeCheckout, time.Hour)
	if err != nil || !ok.OK {
		t.Fatalf("reserve within guarded quota should succeed: err=%v", err)
	}

	// 剩余额度 1，要 2 被防护层拒绝，数据库里不准出现预占
	before := reservations.activeCount()
	rejected, err := manager.Reserve(context.Background(), []domain.CartItem{
		{ProductID: "hot", Quantity: 2},
	}, "u2", "sess-2", domain.ReservationTypeCheckout, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.OK {
		t.Fatal("expected guard rejection")
	}
	if reservations.activeCount() != before {
		t.Fatal("rejected reserve must not persist reservations")
	}
}

// 混合购物车里某个热点条目被拒时，前面条目占到的额度必须全部回补。
func TestReserveCreditsBackOnPartialHold(t *testing.T) {
	products := newFakeProductRepo(activeProduct("hot1", 100), activeProduct("hot2", 100))
	reservations := &fakeReservationRepo{}
	guard := newFakeHotGuard()
	guard.Prime(context.Background(), "hot1", 5)
	guard.Prime(context.Background(), "hot2", 0)

	validator := NewCartStockValidator(products, reservations, testTracer())
	manager := NewReservationManager(validator, reservations, products, guard, nil, 0, testTracer())

	result, err := manager.Reserve(context.Background(), []domain.CartItem{
		{ProductID: "hot1", Quantity: 2},
		{ProductID: "hot2", Quantity: 1},
	}, "u1", "sess-1", domain.ReservationTypeCheckout, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Fatal("expected rejection on hot2")
	}
	if got := guard.available["hot1"]; got != 5 {
		t.Fatalf("expected hot1 quota credited back to 5, got %d", got)
	}
}
