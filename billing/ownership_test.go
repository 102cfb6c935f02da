/*
ownership_test.go - Unit tests for the time-ranged ownership relation

CORE DESIGN:
- Ownership is a dated range, not a mutable foreign key
- Transfers close the seller's range the day before the buyer's opens
- As-of lookups stay correct for historical dates after a sale
*/
package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/edificio/billing-engine/billing"
)

func ownershipFixture(t *testing.T) (*billing.OwnerRegistry, billing.Store) {
	t.Helper()
	store := newSeededStore(t)
	if err := store.SaveOwner(context.Background(), billing.Owner{ID: "owner-2", Name: "L. Rossi", Email: "rossi@example.com"}); err != nil {
		t.Fatalf("seeding owner: %v", err)
	}
	return billing.NewOwnerRegistry(store), store
}

func TestAssign_RejectsHeldApartment(t *testing.T) {
	// GIVEN: apt-1a assigned to owner-1
	// WHEN: Assigning it again
	// THEN: Rejected - a sale goes through Transfer

	registry, _ := ownershipFixture(t)
	ctx := context.Background()

	if _, err := registry.Assign(ctx, "owner-1", "apt-1a", mustDate(t, "2024-01-01")); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := registry.Assign(ctx, "owner-2", "apt-1a", mustDate(t, "2024-02-01")); err == nil {
		t.Fatal("expected second assignment to fail")
	}
}

func TestAssign_ValidatesDirectory(t *testing.T) {
	// GIVEN: An empty ownership relation
	// WHEN: Assigning with unknown owner or apartment
	// THEN: Not-found errors

	registry, _ := ownershipFixture(t)
	ctx := context.Background()

	if _, err := registry.Assign(ctx, "owner-404", "apt-1a", mustDate(t, "2024-01-01")); !errors.Is(err, billing.ErrUnknownOwner) {
		t.Errorf("unknown owner: expected not found, got %v", err)
	}
	if _, err := registry.Assign(ctx, "owner-1", "apt-404", mustDate(t, "2024-01-01")); !errors.Is(err, billing.ErrUnknownApartment) {
		t.Errorf("unknown apartment: expected not found, got %v", err)
	}
}

func TestTransfer_ClosesSellersRange(t *testing.T) {
	// GIVEN: owner-1 holding apt-1a since 2024-01-01
	// WHEN: Transferring to owner-2 effective 2024-04-01
	// THEN: Seller's range ends 2024-03-31; as-of lookups split on that day

	registry, _ := ownershipFixture(t)
	ctx := context.Background()

	if _, err := registry.Assign(ctx, "owner-1", "apt-1a", mustDate(t, "2024-01-01")); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := registry.Transfer(ctx, "apt-1a", "owner-2", mustDate(t, "2024-04-01")); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	cases := []struct {
		date string
		want billing.OwnerID
	}{
		{"2024-03-31", "owner-1"}, // seller's last day
		{"2024-04-01", "owner-2"}, // buyer's first day
		{"2025-01-01", "owner-2"},
	}
	for _, tc := range cases {
		got, err := registry.OwnerOf(ctx, "apt-1a", mustDate(t, tc.date))
		if err != nil {
			t.Fatalf("OwnerOf(%s): %v", tc.date, err)
		}
		if got != tc.want {
			t.Errorf("OwnerOf(%s) = %s, want %s", tc.date, got, tc.want)
		}
	}

	if _, err := registry.OwnerOf(ctx, "apt-1a", mustDate(t, "2023-12-31")); !errors.Is(err, billing.ErrUnknownApartment) {
		t.Errorf("before first assignment: expected not found, got %v", err)
	}
}

func TestTransfer_Validation(t *testing.T) {
	// GIVEN: apt-1a held by owner-1 since 2024-01-01
	// WHEN: Transferring with bad inputs
	// THEN: Each rejected

	registry, _ := ownershipFixture(t)
	ctx := context.Background()

	if _, err := registry.Transfer(ctx, "apt-1a", "owner-2", mustDate(t, "2024-04-01")); err == nil {
		t.Error("transfer of unheld apartment must fail")
	}

	if _, err := registry.Assign(ctx, "owner-1", "apt-1a", mustDate(t, "2024-01-01")); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := registry.Transfer(ctx, "apt-1a", "owner-404", mustDate(t, "2024-04-01")); !errors.Is(err, billing.ErrUnknownOwner) {
		t.Errorf("unknown buyer: expected not found, got %v", err)
	}
	if _, err := registry.Transfer(ctx, "apt-1a", "owner-2", mustDate(t, "2024-01-01")); !errors.Is(err, billing.ErrInvalidTerm) {
		t.Errorf("effective date not after acquisition: expected invalid term, got %v", err)
	}
}

func TestApartments_AsOfPortfolio(t *testing.T) {
	// GIVEN: owner-1 holding two apartments, then selling one
	// WHEN: Listing the portfolio before and after the sale
	// THEN: The sold apartment drops out as of the transfer date

	registry, store := ownershipFixture(t)
	ctx := context.Background()

	if err := store.SaveApartment(ctx, billing.Apartment{ID: "apt-1b", Floor: 1, Letter: "B"}); err != nil {
		t.Fatalf("seeding apartment: %v", err)
	}
	if _, err := registry.Assign(ctx, "owner-1", "apt-1a", mustDate(t, "2024-01-01")); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := registry.Assign(ctx, "owner-1", "apt-1b", mustDate(t, "2024-01-01")); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := registry.Transfer(ctx, "apt-1b", "owner-2", mustDate(t, "2024-06-01")); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	before, err := registry.Apartments(ctx, "owner-1", mustDate(t, "2024-03-01"))
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(before) != 2 {
		t.Errorf("expected 2 apartments before the sale, got %d", len(before))
	}

	after, err := registry.Apartments(ctx, "owner-1", mustDate(t, "2024-07-01"))
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(after) != 1 || after[0].ApartmentID != "apt-1a" {
		t.Errorf("expected only apt-1a after the sale, got %+v", after)
	}
}
