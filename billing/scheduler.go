/*
scheduler.go - Charge generation from contracts

PURPOSE:
  Derives periodic charge obligations from active contracts: one charge per
  apartment, bill type, and billing period. Rent is flat from the contract;
  municipal/provincial/water/tax/expenses amounts pass through from
  externally supplied meter readings and assessments.

IDEMPOTENCE:
  Generation is keyed by (apartment, bill type, period). Re-invoking for a
  period that already has charges returns the existing ones - no duplicates,
  no error. The uniqueness lives in the store (CreateCharge rejects the
  key), so concurrent generation cannot slip a duplicate through either.

CONFLICTS:
  Asking for a period entirely outside the contract's active range fails
  with a SchedulingConflict. So does creating a single charge directly when
  its key is taken.
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// =============================================================================
// METER READINGS - Externally supplied per-period amounts
// =============================================================================

// MeterReadings carries the period's externally determined amounts, keyed by
// bill type. Rent is never read from here; it comes from the contract.
type MeterReadings map[BillType]Money

// =============================================================================
// CHARGE SCHEDULER
// =============================================================================

type ChargeScheduler struct {
	Store  Store
	Policy LatenessPolicy
}

func NewChargeScheduler(store Store, policy LatenessPolicy) *ChargeScheduler {
	return &ChargeScheduler{Store: store, Policy: policy}
}

// Generate produces the period's charges for one contract: a rent charge
// plus one charge per bill type present in readings. Existing charges for
// the same key are returned as-is. The full result is sorted by bill type
// for stable output.
func (s *ChargeScheduler) Generate(ctx context.Context, contract Contract, period BillingPeriod, readings MeterReadings) ([]Charge, error) {
	if !contract.Covers(period) {
		return nil, &SchedulingConflictError{
			ApartmentID: contract.ApartmentID,
			BillType:    BillRent,
			Period:      period,
			Reason:      fmt.Sprintf("period outside contract term starting %s", contract.Start),
		}
	}

	wanted := []struct {
		billType BillType
		amount   Money
	}{
		{BillRent, contract.Rent},
	}
	for _, bt := range []BillType{BillExpenses, BillMunicipal, BillProvincial, BillWater, BillTax} {
		if amount, ok := readings[bt]; ok {
			if amount.IsNegative() {
				return nil, fmt.Errorf("negative %s reading for %s: %w", bt, period, ErrInvalidAmount)
			}
			wanted = append(wanted, struct {
				billType BillType
				amount   Money
			}{bt, amount})
		}
	}

	var charges []Charge
	for _, w := range wanted {
		charge, err := s.generateOne(ctx, contract, period, w.billType, w.amount)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}

	sort.Slice(charges, func(i, j int) bool { return charges[i].BillType < charges[j].BillType })
	return charges, nil
}

// GenerateForPeriod runs generation for every contract active during the
// period. Used by billingctl and the admin endpoint at month open.
func (s *ChargeScheduler) GenerateForPeriod(ctx context.Context, contracts []Contract, period BillingPeriod, readings map[ApartmentID]MeterReadings) ([]Charge, error) {
	var all []Charge
	for _, c := range contracts {
		if !c.Covers(period) {
			continue
		}
		charges, err := s.Generate(ctx, c, period, readings[c.ApartmentID])
		if err != nil {
			return nil, err
		}
		all = append(all, charges...)
	}
	return all, nil
}

func (s *ChargeScheduler) generateOne(ctx context.Context, contract Contract, period BillingPeriod, billType BillType, amount Money) (Charge, error) {
	key := ChargeKey{ApartmentID: contract.ApartmentID, BillType: billType, Period: period}

	status := ChargePending
	if amount.IsZero() {
		// Nothing owed; settled from birth.
		status = ChargePaid
	}

	charge := Charge{
		ID:          NewChargeID(),
		ApartmentID: contract.ApartmentID,
		ContractID:  contract.ID,
		BillType:    billType,
		Period:      period,
		Amount:      amount,
		DueDate:     s.Policy.DueDateFor(period),
		Status:      status,
		Adjusted:    billType == BillRent && s.isAdjustmentBoundary(contract, period),
		CreatedAt:   Today(),
	}

	err := s.Store.CreateCharge(ctx, charge)
	if err == nil {
		return charge, nil
	}
	if errors.Is(err, ErrSchedulingConflict) {
		// Already generated; idempotent re-invocation returns the original.
		return s.Store.ChargeByKey(ctx, key)
	}
	return Charge{}, err
}

// isAdjustmentBoundary reports whether the period lands on the contract's
// rent adjustment cadence (every AdjustmentMonths from the start, exclusive
// of the first period).
func (s *ChargeScheduler) isAdjustmentBoundary(contract Contract, period BillingPeriod) bool {
	if contract.AdjustmentMonths <= 0 {
		return false
	}
	months := period.MonthsSince(PeriodOf(contract.Start))
	return months > 0 && months%contract.AdjustmentMonths == 0
}
