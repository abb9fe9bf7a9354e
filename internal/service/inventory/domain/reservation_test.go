// internal/service/inventory/domain/reservation_test.go
package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewStockReservation(t *testing.T) {
	r, err := NewStockReservation("p1", 3, "u1", "sess-1", ReservationTypeCheckout, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected generated reservation ID")
	}
	if r.ReleasedAt != nil {
		t.Fatal("new reservation must not be released")
	}
	wantExpiry := time.Now().Add(30 * time.Minute)
	if r.ExpiresAt.Before(wantExpiry.Add(-time.Second)) || r.ExpiresAt.After(wantExpiry.Add(time.Second)) {
		t.Fatalf("unexpected expiry %v", r.ExpiresAt)
	}
}

func TestNewStockReservationDefaultsTTL(t *testing.T) {
	r, err := NewStockReservation("p1", 1, "", "sess-1", ReservationTypeCart, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if until := time.Until(r.ExpiresAt); until < DefaultCheckoutTTL-time.Second || until > DefaultCheckoutTTL+time.Second {
		t.Fatalf("expected default TTL, expires in %v", until)
	}
}

func TestNewStockReservationRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name      string
		productID string
		quantity  int
		sessionID string
	}{
		{"empty product", "", 1, "sess"},
		{"empty session", "p1", 1, ""},
		{"zero quantity", "p1", 0, "sess"},
		{"negative quantity", "p1", -2, "sess"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewStockReservation(tc.productID, tc.quantity, "u1", tc.sessionID, ReservationTypeCheckout, time.Hour); !errors.Is(err, ErrInvalidReservation) {
				t.Fatalf("expected ErrInvalidReservation, got %v", err)
			}
		})
	}
}

func TestActive(t *testing.T) {
	r, _ := NewStockReservation("p1", 1, "u1", "sess-1", ReservationTypeCheckout, time.Hour)
	now := time.Now()

	if !r.Active(now) {
		t.Fatal("fresh reservation must be active")
	}
	if r.Active(r.ExpiresAt.Add(time.Second)) {
		t.Fatal("expired reservation must not be active")
	}

	r.Release(now)
	if r.Active(now) {
		t.Fatal("released reservation must not be active")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	r, _ := NewStockReservation("p1", 1, "u1", "sess-1", ReservationTypeCheckout, time.Hour)

	first := time.Now()
	r.Release(first)
	releasedAt := *r.ReleasedAt

	r.Release(first.Add(time.Minute))
	if !r.ReleasedAt.Equal(releasedAt) {
		t.Fatal("second release must not move the release timestamp")
	}
}
