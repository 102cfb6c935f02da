/*
contract_test.go - Unit tests for contracts and the contract registry

CORE DESIGN:
- A contract's end date is inclusive: active on its last day
- An apartment holds at most one active contract at any instant
- Terminated contracts are immutable
*/
package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/edificio/billing-engine/billing"
)

// =============================================================================
// ACTIVITY RULE TESTS
// =============================================================================

func TestContract_ActiveAt_InclusiveEnd(t *testing.T) {
	// GIVEN: A contract from 2024-01-01 to 2024-06-30
	// WHEN: Checking activity around the boundaries
	// THEN: Active on both boundary days, inactive outside

	end := mustDate(t, "2024-06-30")
	c := billing.Contract{Start: mustDate(t, "2024-01-01"), End: &end}

	cases := []struct {
		date   string
		active bool
	}{
		{"2023-12-31", false},
		{"2024-01-01", true},
		{"2024-06-30", true}, // ends today, still active today
		{"2024-07-01", false},
	}
	for _, tc := range cases {
		if got := c.ActiveAt(mustDate(t, tc.date)); got != tc.active {
			t.Errorf("ActiveAt(%s) = %v, want %v", tc.date, got, tc.active)
		}
	}
}

func TestContract_Covers_PartialOverlap(t *testing.T) {
	// GIVEN: A contract from 2024-03-15, open-ended
	// WHEN: Checking period coverage
	// THEN: A period the term touches at all is covered

	c := billing.Contract{Start: mustDate(t, "2024-03-15")}

	if !c.Covers(mustPeriod(t, "2024-03")) {
		t.Error("mid-month start must cover its first month")
	}
	if c.Covers(mustPeriod(t, "2024-02")) {
		t.Error("period fully before the start must not be covered")
	}

	end := mustDate(t, "2024-05-10")
	c.End = &end
	if !c.Covers(mustPeriod(t, "2024-05")) {
		t.Error("period the end date falls into must be covered")
	}
	if c.Covers(mustPeriod(t, "2024-06")) {
		t.Error("period fully after the end must not be covered")
	}
}

func TestContract_ResponsibleFor_Defaults(t *testing.T) {
	// GIVEN: A contract with one explicit responsibility
	// WHEN: Asking who pays each bill type
	// THEN: Explicit mapping wins; rent/expenses default to tenant, rest to owner

	c := billing.Contract{
		Responsibilities: map[billing.BillType]billing.BillResponsibility{
			billing.BillWater: billing.PaidByTenant,
		},
	}

	cases := []struct {
		billType billing.BillType
		want     billing.BillResponsibility
	}{
		{billing.BillWater, billing.PaidByTenant}, // explicit
		{billing.BillRent, billing.PaidByTenant},
		{billing.BillExpenses, billing.PaidByTenant},
		{billing.BillMunicipal, billing.PaidByOwner},
		{billing.BillTax, billing.PaidByOwner},
	}
	for _, tc := range cases {
		if got := c.ResponsibleFor(tc.billType); got != tc.want {
			t.Errorf("ResponsibleFor(%s) = %s, want %s", tc.billType, got, tc.want)
		}
	}
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegister_RejectsOverlap(t *testing.T) {
	// GIVEN: An open-ended contract on apt-1a
	// WHEN: Registering a second contract overlapping its term
	// THEN: ErrContractOverlap; a contract after termination is fine

	store := newSeededStore(t)
	registry := billing.NewContractRegistry(store)
	ctx := context.Background()

	first, err := registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-1",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-01-01"),
		Rent:        money("750.00"),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-2",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-06-01"),
		Rent:        money("800.00"),
	})
	if !errors.Is(err, billing.ErrContractOverlap) {
		t.Fatalf("expected overlap error, got %v", err)
	}

	if _, err := registry.Terminate(ctx, first.ID, mustDate(t, "2024-05-31")); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	if _, err := registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-2",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-06-01"),
		Rent:        money("800.00"),
	}); err != nil {
		t.Fatalf("register after termination: %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	// GIVEN: Invalid contract inputs
	// WHEN: Registering
	// THEN: Each is rejected with its own error

	store := newSeededStore(t)
	registry := billing.NewContractRegistry(store)
	ctx := context.Background()

	end := mustDate(t, "2023-12-31")
	_, err := registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-1",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-01-01"),
		End:         &end,
		Rent:        money("750.00"),
	})
	if !errors.Is(err, billing.ErrInvalidTerm) {
		t.Errorf("end before start: expected invalid term, got %v", err)
	}

	_, err = registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-1",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-01-01"),
		Rent:        money("-1.00"),
	})
	if !errors.Is(err, billing.ErrInvalidAmount) {
		t.Errorf("negative rent: expected invalid amount, got %v", err)
	}

	_, err = registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-1",
		ApartmentID: "apt-404",
		Start:       mustDate(t, "2024-01-01"),
		Rent:        money("750.00"),
	})
	if !errors.Is(err, billing.ErrUnknownApartment) {
		t.Errorf("unknown apartment: expected not found, got %v", err)
	}
}

func TestTerminate_Immutable(t *testing.T) {
	// GIVEN: A terminated contract
	// WHEN: Terminating again or with an end before the start
	// THEN: Both rejected

	store := newSeededStore(t)
	registry := billing.NewContractRegistry(store)
	ctx := context.Background()

	c, err := registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-1",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-01-01"),
		Rent:        money("750.00"),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := registry.Terminate(ctx, c.ID, mustDate(t, "2023-06-30")); !errors.Is(err, billing.ErrInvalidTerm) {
		t.Errorf("end before start: expected invalid term, got %v", err)
	}

	if _, err := registry.Terminate(ctx, c.ID, mustDate(t, "2024-06-30")); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if _, err := registry.Terminate(ctx, c.ID, mustDate(t, "2024-09-30")); !errors.Is(err, billing.ErrContractTerminated) {
		t.Errorf("re-terminate: expected terminated error, got %v", err)
	}
}

func TestActiveContract_AsOfLookup(t *testing.T) {
	// GIVEN: Consecutive contracts on one apartment
	// WHEN: Looking up the active contract at different dates
	// THEN: The right tenant comes back for each date, none in the gap

	store := newSeededStore(t)
	registry := billing.NewContractRegistry(store)
	ctx := context.Background()

	end := mustDate(t, "2024-05-31")
	if _, err := registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-1",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-01-01"),
		End:         &end,
		Rent:        money("750.00"),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := registry.Register(ctx, billing.Contract{
		TenantID:    "tenant-2",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-08-01"),
		Rent:        money("800.00"),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := registry.ActiveContract(ctx, "apt-1a", mustDate(t, "2024-03-15"))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.TenantID != "tenant-1" {
		t.Errorf("expected tenant-1 in March, got %s", got.TenantID)
	}

	if _, err := registry.ActiveContract(ctx, "apt-1a", mustDate(t, "2024-07-01")); !errors.Is(err, billing.ErrUnknownContract) {
		t.Errorf("gap between contracts: expected not found, got %v", err)
	}

	got, err = registry.ActiveContract(ctx, "apt-1a", mustDate(t, "2024-09-01"))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.TenantID != "tenant-2" {
		t.Errorf("expected tenant-2 in September, got %s", got.TenantID)
	}
}
