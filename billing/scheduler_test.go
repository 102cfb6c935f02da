/*
scheduler_test.go - Unit tests for charge generation

CORE DESIGN:
- One charge per (apartment, bill type, period), enforced at the store
- Re-invocation returns the existing charges instead of duplicating
- Rent comes from the contract; utility amounts pass through readings
*/
package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/edificio/billing-engine/billing"
)

func schedulerFixture(t *testing.T) (*billing.ChargeScheduler, billing.Contract, billing.Store) {
	t.Helper()
	store := newSeededStore(t)
	scheduler := billing.NewChargeScheduler(store, billing.LatenessPolicy{DueDay: 10, GraceDays: 5, DelinquencyDays: 30})
	contract := billing.Contract{
		ID:          "contract-1",
		TenantID:    "tenant-1",
		ApartmentID: "apt-1a",
		Start:       mustDate(t, "2024-01-01"),
		Rent:        money("750.00"),
	}
	if err := store.SaveContract(context.Background(), contract); err != nil {
		t.Fatalf("seeding contract: %v", err)
	}
	return scheduler, contract, store
}

func TestGenerate_RentPlusReadings(t *testing.T) {
	// GIVEN: A contract with rent 750 and municipal/water readings
	// WHEN: Generating March
	// THEN: Three charges, sorted by bill type, due on the policy's due day

	scheduler, contract, _ := schedulerFixture(t)
	ctx := context.Background()

	charges, err := scheduler.Generate(ctx, contract, mustPeriod(t, "2024-03"), billing.MeterReadings{
		billing.BillMunicipal: money("120.00"),
		billing.BillWater:     money("45.50"),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(charges) != 3 {
		t.Fatalf("expected 3 charges, got %d", len(charges))
	}
	for i := 1; i < len(charges); i++ {
		if charges[i].BillType < charges[i-1].BillType {
			t.Errorf("charges not sorted by bill type: %s before %s", charges[i-1].BillType, charges[i].BillType)
		}
	}

	byType := map[billing.BillType]billing.Charge{}
	for _, c := range charges {
		byType[c.BillType] = c
		if !c.DueDate.Equal(mustDate(t, "2024-03-10")) {
			t.Errorf("%s: expected due 2024-03-10, got %s", c.BillType, c.DueDate)
		}
		if c.Status != billing.ChargePending {
			t.Errorf("%s: expected pending, got %s", c.BillType, c.Status)
		}
	}
	if !byType[billing.BillRent].Amount.Equal(money("750.00")) {
		t.Errorf("rent amount: expected 750.00, got %s", byType[billing.BillRent].Amount)
	}
	if !byType[billing.BillWater].Amount.Equal(money("45.50")) {
		t.Errorf("water amount: expected 45.50, got %s", byType[billing.BillWater].Amount)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	// GIVEN: March already generated
	// WHEN: Generating March again
	// THEN: Same charge IDs come back; no duplicates exist

	scheduler, contract, store := schedulerFixture(t)
	ctx := context.Background()
	readings := billing.MeterReadings{billing.BillWater: money("45.50")}

	first, err := scheduler.Generate(ctx, contract, mustPeriod(t, "2024-03"), readings)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := scheduler.Generate(ctx, contract, mustPeriod(t, "2024-03"), readings)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected %d charges on re-invocation, got %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("charge %d: re-invocation returned a different charge (%s vs %s)", i, first[i].ID, second[i].ID)
		}
	}

	all, err := store.ChargesByApartment(ctx, contract.ApartmentID, "")
	if err != nil {
		t.Fatalf("listing charges: %v", err)
	}
	if len(all) != len(first) {
		t.Errorf("expected %d charges in store, got %d", len(first), len(all))
	}
}

func TestGenerate_PeriodOutsideContract(t *testing.T) {
	// GIVEN: A contract starting January 2024
	// WHEN: Generating December 2023
	// THEN: Scheduling conflict, nothing created

	scheduler, contract, store := schedulerFixture(t)
	ctx := context.Background()

	_, err := scheduler.Generate(ctx, contract, mustPeriod(t, "2023-12"), nil)
	if !errors.Is(err, billing.ErrSchedulingConflict) {
		t.Fatalf("expected scheduling conflict, got %v", err)
	}

	all, err := store.ChargesByApartment(ctx, contract.ApartmentID, "")
	if err != nil {
		t.Fatalf("listing charges: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no charges after conflict, got %d", len(all))
	}
}

func TestGenerate_NegativeReadingRejected(t *testing.T) {
	// GIVEN: A reading with a negative amount
	// WHEN: Generating
	// THEN: ErrInvalidAmount

	scheduler, contract, _ := schedulerFixture(t)

	_, err := scheduler.Generate(context.Background(), contract, mustPeriod(t, "2024-03"), billing.MeterReadings{
		billing.BillWater: money("-1.00"),
	})
	if !errors.Is(err, billing.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestGenerate_ZeroAmountBornPaid(t *testing.T) {
	// GIVEN: A zero water reading (nothing consumed)
	// WHEN: Generating
	// THEN: The charge exists for the record but is born paid

	scheduler, contract, _ := schedulerFixture(t)

	charges, err := scheduler.Generate(context.Background(), contract, mustPeriod(t, "2024-03"), billing.MeterReadings{
		billing.BillWater: billing.ZeroMoney(),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, c := range charges {
		if c.BillType == billing.BillWater && c.Status != billing.ChargePaid {
			t.Errorf("zero-amount charge: expected paid, got %s", c.Status)
		}
	}
}

func TestGenerate_AdjustmentBoundary(t *testing.T) {
	// GIVEN: A contract starting 2024-01 with a 12-month adjustment cadence
	// WHEN: Generating 2024-06, 2025-01 and 2026-01
	// THEN: Only the anniversary periods carry the adjusted flag, rent only

	scheduler, contract, store := schedulerFixture(t)
	contract.AdjustmentMonths = 12
	if err := store.SaveContract(context.Background(), contract); err != nil {
		t.Fatalf("updating contract: %v", err)
	}
	ctx := context.Background()
	readings := billing.MeterReadings{billing.BillWater: money("45.50")}

	cases := []struct {
		period   string
		adjusted bool
	}{
		{"2024-01", false}, // first period is not a boundary
		{"2024-06", false},
		{"2025-01", true},
		{"2026-01", true},
	}

	for _, tc := range cases {
		charges, err := scheduler.Generate(ctx, contract, mustPeriod(t, tc.period), readings)
		if err != nil {
			t.Fatalf("generate %s: %v", tc.period, err)
		}
		for _, c := range charges {
			want := tc.adjusted && c.BillType == billing.BillRent
			if c.Adjusted != want {
				t.Errorf("%s %s: adjusted = %v, want %v", tc.period, c.BillType, c.Adjusted, want)
			}
		}
	}
}

func TestGenerateForPeriod_SkipsNonCoveringContracts(t *testing.T) {
	// GIVEN: Two contracts, one ending before the period
	// WHEN: Generating the period for both
	// THEN: Only the covering contract gets charges

	scheduler, contract, store := schedulerFixture(t)
	ctx := context.Background()

	if err := store.SaveApartment(ctx, billing.Apartment{ID: "apt-1b", Floor: 1, Letter: "B"}); err != nil {
		t.Fatalf("seeding apartment: %v", err)
	}
	ended := mustDate(t, "2024-01-31")
	expired := billing.Contract{
		ID:          "contract-expired",
		TenantID:    "tenant-2",
		ApartmentID: "apt-1b",
		Start:       mustDate(t, "2023-01-01"),
		End:         &ended,
		Rent:        money("500.00"),
	}
	if err := store.SaveContract(ctx, expired); err != nil {
		t.Fatalf("seeding contract: %v", err)
	}

	charges, err := scheduler.GenerateForPeriod(ctx, []billing.Contract{contract, expired}, mustPeriod(t, "2024-03"), nil)
	if err != nil {
		t.Fatalf("generate for period: %v", err)
	}

	for _, c := range charges {
		if c.ApartmentID == "apt-1b" {
			t.Errorf("expired contract received a charge: %+v", c)
		}
	}
	if len(charges) != 1 {
		t.Errorf("expected 1 rent charge, got %d", len(charges))
	}
}
