/*
engine.go - The discount eligibility verdict

PURPOSE:
  Turns the aggregator's worst-status answer into a verdict: eligible, or
  ineligible with the triggering apartment, the triggering charge, and the
  date eligibility returns.

CASCADE:
  Revocation is per owner and per bill type, across every apartment: one
  late water charge on one apartment revokes the owner's water discount on
  all apartments they hold, perfect payment histories included. Each utility
  type is judged against its own charges only - a late municipal charge
  leaves the water discount standing.

RESTORATION:
  Lazy, at query time. There is no restoration event and no punitive delay:
  once every delinquent charge is fully settled, the next query comes back
  eligible. RestoredAfter reports when that happens - the latest settlement
  date among the delinquent set - when the ledger already shows full
  settlement, and stays nil while any delinquent charge remains open.
*/
package eligibility

import (
	"context"

	"github.com/edificio/billing-engine/billing"
)

// =============================================================================
// VERDICT
// =============================================================================

// Eligibility is the verdict for one (owner, bill type, as-of) question.
// Derived on every query; never stored.
type Eligibility struct {
	OwnerID  billing.OwnerID
	BillType billing.BillType
	AsOf     billing.Date

	Eligible bool

	// WorstStatus is the owner's worst classification across this bill
	// type's charges at the as-of date.
	WorstStatus billing.Classification

	// TriggeringApartment and TriggeringCharge identify the delinquent
	// charge behind an ineligible verdict. Zero/nil when eligible.
	TriggeringApartment billing.ApartmentID
	TriggeringCharge    *billing.Charge

	// RestoredAfter is the date eligibility returns: the latest settlement
	// date among the delinquent charges, once the ledger shows them all
	// fully settled. Nil while any remains unsettled.
	RestoredAfter *billing.Date
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store      billing.Store
	Aggregator *Aggregator
}

func NewEngine(store billing.Store, policy billing.LatenessPolicy) *Engine {
	return &Engine{
		Store:      store,
		Aggregator: NewAggregator(store, policy),
	}
}

// Eligibility answers whether the owner qualifies for the discount on one
// utility bill type as of a date. Deterministic for a fixed ledger.
func (e *Engine) Eligibility(ctx context.Context, ownerID billing.OwnerID, billType billing.BillType, asOf billing.Date) (Eligibility, error) {
	if !billType.IsUtility() {
		return Eligibility{}, billing.ErrNotUtility
	}

	// The delinquency scan is complex-wide but scoped to the queried bill
	// type: only this type's charges can revoke this type's discount.
	worst, trigger, err := e.Aggregator.WorstStatusFor(ctx, ownerID, billType, asOf)
	if err != nil {
		return Eligibility{}, err
	}

	verdict := Eligibility{
		OwnerID:     ownerID,
		BillType:    billType,
		AsOf:        asOf,
		Eligible:    !worst.Delinquent(),
		WorstStatus: worst,
	}
	if verdict.Eligible {
		return verdict, nil
	}

	verdict.TriggeringApartment = trigger.ApartmentID
	c := trigger.Charge
	verdict.TriggeringCharge = &c

	offenders, err := e.Aggregator.Offenders(ctx, ownerID, billType, asOf)
	if err != nil {
		return Eligibility{}, err
	}
	var delinquent []Offender
	for _, o := range offenders {
		if o.Classification.Delinquent() {
			delinquent = append(delinquent, o)
		}
	}

	restored, err := e.restoredAfter(ctx, delinquent)
	if err != nil {
		return Eligibility{}, err
	}
	verdict.RestoredAfter = restored
	return verdict, nil
}

// EligibilityAll answers the question for every utility bill type at once.
func (e *Engine) EligibilityAll(ctx context.Context, ownerID billing.OwnerID, asOf billing.Date) ([]Eligibility, error) {
	out := make([]Eligibility, 0, len(billing.UtilityBillTypes))
	for _, bt := range billing.UtilityBillTypes {
		v, err := e.Eligibility(ctx, ownerID, bt, asOf)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// restoredAfter computes the restoration date from the full payment log
// (not truncated at asOf - the ledger may already know about settlement
// that postdates the question).
func (e *Engine) restoredAfter(ctx context.Context, delinquent []Offender) (*billing.Date, error) {
	var latest *billing.Date
	for _, o := range delinquent {
		if o.Charge.Status == billing.ChargeWrittenOff {
			continue
		}
		payments, err := e.Store.PaymentsByCharge(ctx, o.Charge.ID)
		if err != nil {
			return nil, err
		}
		settled := billing.SettledAt(o.Charge, payments)
		if settled == nil {
			// One open delinquent charge means no restoration date yet.
			return nil, nil
		}
		if latest == nil || settled.After(*latest) {
			latest = settled
		}
	}
	return latest, nil
}
