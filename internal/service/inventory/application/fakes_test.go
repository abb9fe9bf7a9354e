// internal/service/inventory/application/fakes_test.go
package application

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"luzimarket/internal/service/inventory/domain"
	"luzimarket/internal/service/inventory/domain/port"
)

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// fakeProductRepo 用内存 map 模拟台账，扣减钳制语义与 MySQL 实现一致。
type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	vendors  map[string]string // vendorID -> name

	reduceErr   map[string]error // productID -> 注入的扣减错误
	increaseErr map[string]error
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	repo := &fakeProductRepo{
		products:    make(map[string]*domain.Product),
		vendors:     make(map[string]string),
		reduceErr:   make(map[string]error),
		increaseErr: make(map[string]error),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeProductRepo) FindActiveByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProductRepo) ReduceStockClamped(ctx context.Context, id string, quantity int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.reduceErr[id]; err != nil {
		return false, err
	}
	p, ok := r.products[id]
	if !ok {
		return false, domain.ErrProductNotFound
	}
	oversold := quantity > p.Stock
	p.Stock -= quantity
	if p.Stock < 0 {
		p.Stock = 0
	}
	return oversold, nil
}

func (r *fakeProductRepo) IncreaseStock(ctx context.Context, id string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.increaseErr[id]; err != nil {
		return err
	}
	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += quantity
	return nil
}

func (r *fakeProductRepo) FindLowStock(ctx context.Context, threshold int) ([]*domain.LowStockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []*domain.LowStockEntry
	for _, p := range r.products {
		if p.IsActive && p.Stock <= threshold {
			copied := *p
			entries = append(entries, &domain.LowStockEntry{
				Product:    &copied,
				VendorName: r.vendors[p.VendorID],
			})
		}
	}
	// 按库存升序（插入排序，条目很少）
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Product.Stock < entries[j-1].Product.Stock; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	return entries, nil
}

func (r *fakeProductRepo) stockOf(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].Stock
}

// fakeReservationRepo 用内存切片模拟预占表，
// Release / ReleaseExpired / ActiveQuantity 的过滤条件与 SQL 实现一致。
type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations []*domain.StockReservation
	createErr    error
	releaseErr   error
}

func (r *fakeReservationRepo) CreateBatch(ctx context.Context, reservations []*domain.StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, res := range reservations {
		copied := *res
		r.reservations = append(r.reservations, &copied)
	}
	return nil
}

func (r *fakeReservationRepo) Release(ctx context.Context, sessionID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.releaseErr != nil {
		return 0, r.releaseErr
	}
	now := time.Now()
	var released int64
	for _, res := range r.reservations {
		if res.SessionID != sessionID || res.ReleasedAt != nil {
			continue
		}
		if userID != "" && res.UserID != userID {
			continue
		}
		res.Release(now)
		released++
	}
	return released, nil
}

func (r *fakeReservationRepo) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released int64
	for _, res := range r.reservations {
		if res.ReleasedAt == nil && !res.ExpiresAt.After(now) {
			res.Release(now)
			released++
		}
	}
	return released, nil
}

func (r *fakeReservationRepo) ActiveQuantity(ctx context.Context, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	total := 0
	for _, res := range r.reservations {
		if res.ProductID == productID && res.Active(now) {
			total += res.Quantity
		}
	}
	return total, nil
}

func (r *fakeReservationRepo) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	count := 0
	for _, res := range r.reservations {
		if res.Active(now) {
			count++
		}
	}
	return count
}

func (r *fakeReservationRepo) add(res *domain.StockReservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations = append(r.reservations, res)
}

// fakeOrderItemRepo 按订单号返回预置的行项目。
type fakeOrderItemRepo struct {
	items map[string][]*domain.OrderItem
	err   error
}

func (r *fakeOrderItemRepo) FindByOrderID(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.items[orderID], nil
}

// fakePublisher 收集发布过的库存事件。
type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.StockEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, event *domain.StockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	copied := *event
	p.events = append(p.events, &copied)
	return nil
}

func (p *fakePublisher) byType(typ domain.StockEventType) []*domain.StockEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []*domain.StockEvent
	for _, e := range p.events {
		if e.Type == typ {
			matched = append(matched, e)
		}
	}
	return matched
}

// fakeLedger 记录商家记账调用。
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]float64
	err      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[string]float64)}
}

func (l *fakeLedger) CreditBalance(ctx context.Context, vendorID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.balances[vendorID] += amount
	return nil
}

// fakeNotifier 记录发出的买家通知。
type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []string // orderID
	cancelled []string
}

func (n *fakeNotifier) NotifyPaymentConfirmed(ctx context.Context, orderID, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, orderID)
	return nil
}

func (n *fakeNotifier) NotifyOrderCancelled(ctx context.Context, orderID, userID, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, orderID)
	return nil
}

// fakeHotGuard 用内存计数模拟 Redis 热点防护。
type fakeHotGuard struct {
	mu        sync.Mutex
	available map[string]int // 只有出现在这里的商品才算热点
	holds     int
	credits   int
}

func newFakeHotGuard() *fakeHotGuard {
	return &fakeHotGuard{available: make(map[string]int)}
}

func (g *fakeHotGuard) TryHold(ctx context.Context, productID string, quantity int) (port.HoldResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	avail, ok := g.available[productID]
	if !ok {
		return port.HoldUnguarded, nil
	}
	if avail < quantity {
		return port.HoldSoldOut, nil
	}
	g.available[productID] = avail - quantity
	g.holds++
	return port.HoldGranted, nil
}

func (g *fakeHotGuard) CreditBack(ctx context.Context, productID string, quantity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.available[productID]; ok {
		g.available[productID] += quantity
		g.credits++
	}
	return nil
}

func (g *fakeHotGuard) Prime(ctx context.Context, productID string, available int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.available[productID] = available
	return nil
}

// stubRules 以固定结果响应规则评估。
type stubRules struct {
	matched bool
	err     error
}

func (s *stubRules) Evaluate(rule string, fact map[string]interface{}) (bool, error) {
	return s.matched, s.err
}

func activeProduct(id string, stock int) *domain.Product {
	return &domain.Product{
		ID:       id,
		Name:     "product " + id,
		VendorID: "vendor-" + id,
		Stock:    stock,
		IsActive: true,
	}
}
