/*
lateness.go - Timeliness classification of charges

PURPOSE:
  Answers "how late is this charge?" at any as-of date. The classification
  is a pure function of the charge's due date, the as-of date, and the
  payment log - no hidden mutable state, so it is trivially testable and
  re-evaluatable for historical and what-if queries.

CLASSIFICATION:
  on_time      fully settled as of the date, or not yet past due
  grace_period past due, inside the grace window, unsettled
  late         past grace, inside the delinquency window, unsettled
  unpaid       past the delinquency window, unsettled

  Settlement dominates: a charge fully paid as of the date is on_time no
  matter when the money arrived. Eligibility restoration (see the
  eligibility package) relies on exactly this - bringing a charge to fully
  paid brings it back to on_time with no punitive delay.

MONOTONICITY:
  For a fixed payment log and an unsettled charge, the classification only
  advances as the as-of date increases: on_time -> grace_period -> late ->
  unpaid. It never regresses.
*/
package billing

import "context"

// =============================================================================
// CLASSIFICATION
// =============================================================================

type Classification string

const (
	OnTime      Classification = "on_time"
	GracePeriod Classification = "grace_period"
	Late        Classification = "late"
	Unpaid      Classification = "unpaid"
)

// Severity orders classifications: on_time < grace_period < late < unpaid.
func (c Classification) Severity() int {
	switch c {
	case OnTime:
		return 0
	case GracePeriod:
		return 1
	case Late:
		return 2
	case Unpaid:
		return 3
	default:
		return 0
	}
}

func (c Classification) WorseThan(o Classification) bool {
	return c.Severity() > o.Severity()
}

// Delinquent reports whether the classification revokes discount
// eligibility (late or unpaid).
func (c Classification) Delinquent() bool {
	return c == Late || c == Unpaid
}

// =============================================================================
// LATENESS POLICY - Configurable windows, no hardcoded municipal constants
// =============================================================================

// LatenessPolicy holds the timing rules the municipality publishes. All
// three values are configuration; the code assumes no specific defaults.
type LatenessPolicy struct {
	// DueDay is the day of the period month charges fall due (1-28).
	DueDay int

	// GraceDays is the window after the due date during which non-payment
	// does not yet count as late.
	GraceDays int

	// DelinquencyDays is the window after grace during which a charge is
	// late; beyond it the charge counts as unpaid.
	DelinquencyDays int
}

// DueDateFor returns the due date for a charge in the given period.
func (p LatenessPolicy) DueDateFor(period BillingPeriod) Date {
	day := p.DueDay
	if day < 1 {
		day = 1
	}
	return period.Start().AddDays(day - 1)
}

// =============================================================================
// CLASSIFY - Pure classification function
// =============================================================================

// ClassifyCharge classifies a charge's timeliness as of a date, given its
// payment history. Pure: same inputs, same answer.
//
// Written-off charges classify as on_time - forgiven debt does not block
// the owner's discount.
func ClassifyCharge(charge Charge, payments []Payment, policy LatenessPolicy, asOf Date) Classification {
	if charge.Status == ChargeWrittenOff {
		return OnTime
	}

	// A zero-amount charge carries no debt; there is nothing to be late on.
	if !charge.Amount.IsPositive() {
		return OnTime
	}

	if settled := SettledAt(charge, paymentsUpTo(payments, asOf)); settled != nil {
		return OnTime
	}

	due := charge.DueDate
	if due.IsZero() {
		due = policy.DueDateFor(charge.Period)
	}

	switch {
	case asOf.BeforeOrEqual(due):
		return OnTime
	case asOf.BeforeOrEqual(due.AddDays(policy.GraceDays)):
		return GracePeriod
	case asOf.BeforeOrEqual(due.AddDays(policy.GraceDays + policy.DelinquencyDays)):
		return Late
	default:
		return Unpaid
	}
}

func paymentsUpTo(payments []Payment, asOf Date) []Payment {
	var out []Payment
	for _, p := range payments {
		if p.PaidAt.BeforeOrEqual(asOf) {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// LATENESS DETECTOR - Store-backed convenience wrapper
// =============================================================================

// LatenessDetector loads a charge's payments and classifies it. All logic
// lives in ClassifyCharge; the detector only fetches inputs.
type LatenessDetector struct {
	Store  Store
	Policy LatenessPolicy
}

func NewLatenessDetector(store Store, policy LatenessPolicy) *LatenessDetector {
	return &LatenessDetector{Store: store, Policy: policy}
}

// Classify classifies one charge by ID as of a date.
func (d *LatenessDetector) Classify(ctx context.Context, chargeID ChargeID, asOf Date) (Classification, error) {
	charge, err := d.Store.Charge(ctx, chargeID)
	if err != nil {
		return "", err
	}
	return d.ClassifyLoaded(ctx, charge, asOf)
}

// ClassifyLoaded classifies an already-loaded charge as of a date.
func (d *LatenessDetector) ClassifyLoaded(ctx context.Context, charge Charge, asOf Date) (Classification, error) {
	payments, err := d.Store.PaymentsByCharge(ctx, charge.ID)
	if err != nil {
		return "", err
	}
	return ClassifyCharge(charge, payments, d.Policy, asOf), nil
}
