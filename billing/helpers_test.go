/*
helpers_test.go - Shared fixtures for the billing package tests

Builds stores pre-seeded with a small directory so individual tests only
state what they are about. All external tests run against the in-memory
store; the SQLite implementation is covered through the API tests.
*/
package billing_test

import (
	"context"
	"testing"

	"github.com/edificio/billing-engine/billing"
	memstore "github.com/edificio/billing-engine/billing/store"
)

func mustDate(t *testing.T, s string) billing.Date {
	t.Helper()
	d, err := billing.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func mustPeriod(t *testing.T, s string) billing.BillingPeriod {
	t.Helper()
	p, err := billing.ParsePeriod(s)
	if err != nil {
		t.Fatalf("bad period %q: %v", s, err)
	}
	return p
}

func money(s string) billing.Money {
	return billing.MustParseMoney(s)
}

// newSeededStore returns a transactional store with one owner and one
// apartment (apt-1a) already registered.
func newSeededStore(t *testing.T) *memstore.TxMemory {
	t.Helper()
	ctx := context.Background()
	s := memstore.NewTxMemory()

	if err := s.SaveOwner(ctx, billing.Owner{ID: "owner-1", Name: "M. Garcia", Email: "garcia@example.com"}); err != nil {
		t.Fatalf("seeding owner: %v", err)
	}
	if err := s.SaveApartment(ctx, billing.Apartment{ID: "apt-1a", Floor: 1, Letter: "A"}); err != nil {
		t.Fatalf("seeding apartment: %v", err)
	}
	return s
}

// createCharge inserts a pending charge directly, bypassing the scheduler.
func createCharge(t *testing.T, s billing.Store, id billing.ChargeID, apartment billing.ApartmentID, billType billing.BillType, period, amount, due string) billing.Charge {
	t.Helper()
	c := billing.Charge{
		ID:          id,
		ApartmentID: apartment,
		BillType:    billType,
		Period:      mustPeriod(t, period),
		Amount:      money(amount),
		DueDate:     mustDate(t, due),
		Status:      billing.ChargePending,
		CreatedAt:   mustDate(t, due),
	}
	if err := s.CreateCharge(context.Background(), c); err != nil {
		t.Fatalf("seeding charge %s: %v", id, err)
	}
	return c
}
