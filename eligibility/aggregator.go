/*
Package eligibility derives owner-level discount eligibility from the
billing ledger.

PURPOSE:
  The municipal discount program is granted per owner and bill type, not per
  apartment: one late or unpaid water charge anywhere in an owner's
  portfolio revokes the water discount on every apartment they hold. This
  package aggregates per-charge classifications up to the owner and answers
  the eligibility question at any as-of date.

KEY CONCEPTS:
  - Offender: one utility charge attributed to an owner, with its
    classification at the as-of date
  - Aggregator: collects offenders and picks the worst
  - Engine (engine.go): turns the worst status into an eligibility verdict
    with the triggering charge and the restoration date

ATTRIBUTION:
  A charge counts against the owner who held the apartment during the
  charge's billing period. Apartments sold before the as-of date drop out of
  the current owner's portfolio entirely; the buyer answers for periods
  after the transfer, the seller's old debt does not follow the apartment.

DERIVATION, NEVER STORAGE:
  Nothing here is persisted. Eligibility is recomputed from contracts,
  ownership ranges, charges, and payments on every query, so it can never
  drift from the ledger.
*/
package eligibility

import (
	"context"

	"github.com/edificio/billing-engine/billing"
)

// =============================================================================
// OFFENDER - One charge attributed to an owner
// =============================================================================

// Offender is a utility charge counted against an owner's eligibility,
// paired with its classification at the aggregation date.
type Offender struct {
	ApartmentID    billing.ApartmentID
	Charge         billing.Charge
	Classification billing.Classification
}

// =============================================================================
// OWNER AGGREGATOR
// =============================================================================

// Aggregator rolls per-charge classifications up to the owner level.
type Aggregator struct {
	Store  billing.Store
	Policy billing.LatenessPolicy
}

func NewAggregator(store billing.Store, policy billing.LatenessPolicy) *Aggregator {
	return &Aggregator{Store: store, Policy: policy}
}

// WorstStatus returns the owner's worst classification across all utility
// bill types and all apartments held as of the date, together with the
// offender that produced it. With no attributable charges the owner is
// on_time and the offender is nil.
func (a *Aggregator) WorstStatus(ctx context.Context, ownerID billing.OwnerID, asOf billing.Date) (billing.Classification, *Offender, error) {
	return a.worst(ctx, ownerID, "", asOf)
}

// WorstStatusFor is WorstStatus restricted to a single utility bill type.
func (a *Aggregator) WorstStatusFor(ctx context.Context, ownerID billing.OwnerID, billType billing.BillType, asOf billing.Date) (billing.Classification, *Offender, error) {
	return a.worst(ctx, ownerID, billType, asOf)
}

func (a *Aggregator) worst(ctx context.Context, ownerID billing.OwnerID, billType billing.BillType, asOf billing.Date) (billing.Classification, *Offender, error) {
	offenders, err := a.Offenders(ctx, ownerID, billType, asOf)
	if err != nil {
		return "", nil, err
	}

	worst := billing.OnTime
	var trigger *Offender
	for i := range offenders {
		o := offenders[i]
		if o.Classification.WorseThan(worst) {
			worst = o.Classification
			trigger = &offenders[i]
			continue
		}
		// Same severity: the earliest-due charge is the trigger, so the
		// verdict names the debt that went bad first.
		if trigger != nil && o.Classification == worst && o.Charge.DueDate.Before(trigger.Charge.DueDate) {
			trigger = &offenders[i]
		}
	}
	if worst == billing.OnTime {
		trigger = nil
	}
	return worst, trigger, nil
}

// Offenders returns every utility charge attributable to the owner as of
// the date, classified. billType == "" means all utility bill types.
func (a *Aggregator) Offenders(ctx context.Context, ownerID billing.OwnerID, billType billing.BillType, asOf billing.Date) ([]Offender, error) {
	if _, err := a.Store.Owner(ctx, ownerID); err != nil {
		return nil, err
	}

	ranges, err := a.Store.OwnershipsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var out []Offender
	for _, tenure := range ranges {
		// Only apartments the owner still holds at the as-of date count.
		if !tenure.ActiveAt(asOf) {
			continue
		}

		charges, err := a.Store.ChargesByApartment(ctx, tenure.ApartmentID, billType)
		if err != nil {
			return nil, err
		}
		for _, c := range charges {
			if !c.BillType.IsUtility() {
				continue
			}
			if !tenureCoversPeriod(tenure, c.Period) {
				continue
			}
			payments, err := a.Store.PaymentsByCharge(ctx, c.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, Offender{
				ApartmentID:    tenure.ApartmentID,
				Charge:         c,
				Classification: billing.ClassifyCharge(c, payments, a.Policy, asOf),
			})
		}
	}
	return out, nil
}

// tenureCoversPeriod reports whether the ownership range overlaps the
// charge's billing period. The period's debt belongs to whoever held the
// apartment then, not to whoever holds it now.
func tenureCoversPeriod(o billing.Ownership, p billing.BillingPeriod) bool {
	if o.EffectiveTo != nil && o.EffectiveTo.Before(p.Start()) {
		return false
	}
	return o.EffectiveFrom.BeforeOrEqual(p.End())
}
