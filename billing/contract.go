/*
contract.go - Contracts and the contract registry

PURPOSE:
  A Contract binds a tenant to an apartment for a date range and says who
  pays which bills. Contracts are the input of charge generation: rent comes
  from the contract, utility amounts pass through from meter readings.

ACTIVITY RULE (intentionally centralized):
  A contract is active as of a date D when
    start <= D  AND  (end is nil OR end >= D)
  The end date is INCLUSIVE: a contract ending "today" is still active today.
  Every component that needs "is this contract active" goes through
  ActiveAt - the boundary conditions are defined exactly once.

LIFECYCLE:
  created -> active at start date -> terminated at end date or by early
  cancellation. A terminated contract is immutable; superseding terms
  require a new contract. An apartment holds at most one active contract
  at any instant, enforced at registration time.
*/
package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// CONTRACT
// =============================================================================

// BillResponsibility says which party a bill type falls on.
type BillResponsibility string

const (
	PaidByTenant BillResponsibility = "tenant"
	PaidByOwner  BillResponsibility = "owner"
)

// Contract binds a tenant to an apartment for a term.
type Contract struct {
	ID          ContractID
	TenantID    TenantID
	ApartmentID ApartmentID

	Start Date
	// End is inclusive; nil means open-ended.
	End *Date

	Rent Money

	// Responsibilities maps bill types to the paying party. Bill types not
	// present default to tenant for rent/expenses and owner for the rest.
	Responsibilities map[BillType]BillResponsibility

	// AdjustmentMonths is the rent adjustment cadence; 0 = no scheduled
	// adjustment. Charges generated on a boundary carry Adjusted=true.
	AdjustmentMonths int
}

func NewContractID() ContractID { return ContractID(uuid.NewString()) }

// ActiveAt reports whether the contract is active as of d.
func (c Contract) ActiveAt(d Date) bool {
	return c.Start.BeforeOrEqual(d) && (c.End == nil || c.End.AfterOrEqual(d))
}

// Covers reports whether any part of the billing period falls inside the
// contract's term. Charge generation for a period the contract never
// touches is a scheduling conflict.
func (c Contract) Covers(p BillingPeriod) bool {
	if c.Start.After(p.End()) {
		return false
	}
	if c.End != nil && c.End.Before(p.Start()) {
		return false
	}
	return true
}

// ResponsibleFor returns who pays the given bill type under this contract.
func (c Contract) ResponsibleFor(b BillType) BillResponsibility {
	if r, ok := c.Responsibilities[b]; ok {
		return r
	}
	switch b {
	case BillRent, BillExpenses:
		return PaidByTenant
	default:
		return PaidByOwner
	}
}

// overlaps reports whether two terms share at least one day.
func (c Contract) overlaps(o Contract) bool {
	if o.End != nil && o.End.Before(c.Start) {
		return false
	}
	if c.End != nil && c.End.Before(o.Start) {
		return false
	}
	return true
}

// =============================================================================
// CONTRACT REGISTRY - Validated contract lifecycle
// =============================================================================

// ContractRegistry owns contract records. All writes go through here so the
// one-active-contract-per-apartment invariant holds.
type ContractRegistry struct {
	Store Store
}

func NewContractRegistry(store Store) *ContractRegistry {
	return &ContractRegistry{Store: store}
}

// Register validates and persists a new contract.
func (r *ContractRegistry) Register(ctx context.Context, c Contract) (Contract, error) {
	if c.ID == "" {
		c.ID = NewContractID()
	}
	if c.End != nil && c.End.Before(c.Start) {
		return Contract{}, fmt.Errorf("contract %s: %w", c.ID, ErrInvalidTerm)
	}
	if c.Rent.IsNegative() {
		return Contract{}, fmt.Errorf("contract %s: negative rent: %w", c.ID, ErrInvalidAmount)
	}
	if _, err := r.Store.Apartment(ctx, c.ApartmentID); err != nil {
		return Contract{}, err
	}

	existing, err := r.Store.ContractsByApartment(ctx, c.ApartmentID)
	if err != nil {
		return Contract{}, err
	}
	for _, e := range existing {
		if c.overlaps(e) {
			return Contract{}, fmt.Errorf("contract %s overlaps %s: %w", c.ID, e.ID, ErrContractOverlap)
		}
	}

	if err := r.Store.SaveContract(ctx, c); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// Terminate ends a contract early (or fixes an open end date). The end date
// is inclusive and may not precede the start. Already-terminated contracts
// are immutable.
func (r *ContractRegistry) Terminate(ctx context.Context, id ContractID, end Date) (Contract, error) {
	c, err := r.Store.Contract(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if c.End != nil {
		return Contract{}, fmt.Errorf("contract %s: %w", id, ErrContractTerminated)
	}
	if end.Before(c.Start) {
		return Contract{}, fmt.Errorf("contract %s: %w", id, ErrInvalidTerm)
	}

	c.End = &end
	if err := r.Store.SaveContract(ctx, c); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// ActiveContract returns the apartment's active contract as of the date,
// or ErrUnknownContract when none is active.
func (r *ContractRegistry) ActiveContract(ctx context.Context, apartmentID ApartmentID, asOf Date) (Contract, error) {
	contracts, err := r.Store.ContractsByApartment(ctx, apartmentID)
	if err != nil {
		return Contract{}, err
	}
	for _, c := range contracts {
		if c.ActiveAt(asOf) {
			return c, nil
		}
	}
	return Contract{}, fmt.Errorf("no active contract for apartment %s as of %s: %w",
		apartmentID, asOf, ErrUnknownContract)
}

// ActiveContracts returns every contract active as of the date, across all
// apartments. Used by period charge generation.
func (r *ContractRegistry) ActiveContracts(ctx context.Context, asOf Date) ([]Contract, error) {
	contracts, err := r.Store.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	var active []Contract
	for _, c := range contracts {
		if c.ActiveAt(asOf) {
			active = append(active, c)
		}
	}
	return active, nil
}
