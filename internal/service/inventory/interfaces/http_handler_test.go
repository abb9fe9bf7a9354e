// internal/service/inventory/interfaces/http_handler_test.go
package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"luzimarket/internal/service/inventory/application"
	"luzimarket/internal/service/inventory/domain"
)

// 内存存储，只覆盖 HTTP 层测试需要的行为。
type memStore struct {
	mu           sync.Mutex
	products     map[string]*domain.Product
	reservations []*domain.StockReservation
	orderItems   map[string][]*domain.OrderItem
}

func newMemStore(products ...*domain.Product) *memStore {
	s := &memStore{
		products:   make(map[string]*domain.Product),
		orderItems: make(map[string][]*domain.OrderItem),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) FindActiveByID(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || !p.IsActive {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *memStore) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *memStore) ReduceStockClamped(ctx context.Context, id string, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
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

func (s *memStore) IncreaseStock(ctx context.Context, id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += quantity
	return nil
}

func (s *memStore) FindLowStock(ctx context.Context, threshold int) ([]*domain.LowStockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []*domain.LowStockEntry
	for _, p := range s.products {
		if p.IsActive && p.Stock <= threshold {
			copied := *p
			entries = append(entries, &domain.LowStockEntry{Product: &copied})
		}
	}
	return entries, nil
}

func (s *memStore) CreateBatch(ctx context.Context, reservations []*domain.StockReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reservations {
		copied := *r
		s.reservations = append(s.reservations, &copied)
	}
	return nil
}

func (s *memStore) Release(ctx context.Context, sessionID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var released int64
	for _, r := range s.reservations {
		if r.SessionID == sessionID && r.ReleasedAt == nil {
			r.Release(now)
			released++
		}
	}
	return released, nil
}

func (s *memStore) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	for _, r := range s.reservations {
		if r.ReleasedAt == nil && !r.ExpiresAt.After(now) {
			r.Release(now)
			released++
		}
	}
	return released, nil
}

func (s *memStore) ActiveQuantity(ctx context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	total := 0
	for _, r := range s.reservations {
		if r.ProductID == productID && r.Active(now) {
			total += r.Quantity
		}
	}
	return total, nil
}

func (s *memStore) FindByOrderID(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderItems[orderID], nil
}

func newTestServer(store *memStore) *httptest.Server {
	tracer := noop.NewTracerProvider().Tracer("test")
	validator := application.NewCartStockValidator(store, store, tracer)
	manager := application.NewReservationManager(validator, store, store, nil, nil, 0, tracer)
	adjuster := application.NewStockAdjuster(store, store, nil, tracer)
	orchestrator := application.NewPaymentOrchestrator(adjuster, manager, store, store, nil, nil, tracer)
	reporter := application.NewLowStockReporter(store, nil, nil, "", 5, tracer)

	handler := NewInventoryHandler(validator, manager, orchestrator, reporter)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestReserveEndpoint(t *testing.T) {
	store := newMemStore(&domain.Product{ID: "p1", Name: "Vase", Stock: 10, IsActive: true})
	server := newTestServer(store)
	defer server.Close()

	resp := postJSON(t, server.URL+"/checkout/reserve", application.ReserveStockRequest{
		Items:     []application.CartItemRequest{{ProductID: "p1", Quantity: 3}},
		UserID:    "u1",
		SessionID: "sess-1",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var reserved application.ReserveStockResponse
	if err := json.NewDecoder(resp.Body).Decode(&reserved); err != nil {
		t.Fatal(err)
	}
	if reserved.SessionID != "sess-1" || len(reserved.ReservationIDs) != 1 {
		t.Fatalf("unexpected response: %+v", reserved)
	}
}

func TestReserveEndpointShortfallConflict(t *testing.T) {
	store := newMemStore(&domain.Product{ID: "p1", Name: "Vase", Stock: 2, IsActive: true})
	server := newTestServer(store)
	defer server.Close()

	resp := postJSON(t, server.URL+"/checkout/reserve", application.ReserveStockRequest{
		Items:     []application.CartItemRequest{{ProductID: "p1", Quantity: 5}},
		SessionID: "sess-1",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d", resp.StatusCode)
	}

	var body application.ValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.IsValid || len(body.Shortfalls) != 1 {
		t.Fatalf("expected one shortfall, got %+v", body)
	}
	if body.Shortfalls[0].AvailableStock != 2 {
		t.Fatalf("expected available 2, got %d", body.Shortfalls[0].AvailableStock)
	}
}

func TestReserveEndpointMissingSession(t *testing.T) {
	store := newMemStore(&domain.Product{ID: "p1", Stock: 10, IsActive: true})
	server := newTestServer(store)
	defer server.Close()

	resp := postJSON(t, server.URL+"/checkout/reserve", application.ReserveStockRequest{
		Items: []application.CartItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing session, got %d", resp.StatusCode)
	}
}

func TestValidateEndpoint(t *testing.T) {
	store := newMemStore(&domain.Product{ID: "p1", Name: "Vase", Stock: 1, IsActive: true})
	server := newTestServer(store)
	defer server.Close()

	resp := postJSON(t, server.URL+"/checkout/validate", application.ValidateCartRequest{
		Items: []application.CartItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "ghost", Quantity: 1, DisplayName: "Gone"},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body application.ValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.IsValid || len(body.Shortfalls) != 2 {
		t.Fatalf("expected 2 shortfalls, got %+v", body)
	}
}

func TestAvailableEndpoint(t *testing.T) {
	store := newMemStore(&domain.Product{ID: "p1", Stock: 10, IsActive: true})
	server := newTestServer(store)
	defer server.Close()

	resp, err := http.Get(server.URL + "/checkout/available?productId=p1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		ProductID      string `json:"productId"`
		AvailableStock int    `json:"availableStock"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.AvailableStock != 10 {
		t.Fatalf("expected 10 available, got %d", body.AvailableStock)
	}
}

func TestReleaseEndpointRequiresSession(t *testing.T) {
	server := newTestServer(newMemStore())
	defer server.Close()

	resp := postJSON(t, server.URL+"/checkout/release", application.ReleaseStockRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPaymentWebhook(t *testing.T) {
	store := newMemStore(&domain.Product{ID: "p1", Stock: 10, IsActive: true})
	store.orderItems["order-1"] = []*domain.OrderItem{
		{OrderID: "order-1", ProductID: "p1", Quantity: 4, Price: 10},
	}
	server := newTestServer(store)
	defer server.Close()

	resp := postJSON(t, server.URL+"/internal/payment-webhook", domain.PaymentEvent{
		Type:    domain.PaymentSucceeded,
		OrderID: "order-1",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got, _ := store.FindByID(context.Background(), "p1"); got.Stock != 6 {
		t.Fatalf("expected stock 6 after webhook, got %d", got.Stock)
	}
}

func TestLowStockEndpoint(t *testing.T) {
	store := newMemStore(
		&domain.Product{ID: "p1", Name: "Vase", Stock: 1, IsActive: true},
		&domain.Product{ID: "p2", Name: "Lamp", Stock: 50, IsActive: true},
	)
	server := newTestServer(store)
	defer server.Close()

	resp, err := http.Get(server.URL + "/admin/low-stock?threshold=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var items []application.LowStockItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ProductID != "p1" {
		t.Fatalf("expected only p1 in the report, got %+v", items)
	}
}
