/*
ownership.go - Time-ranged owner-apartment relation

PURPOSE:
  Ownership is modeled as a time-ranged relation (owner, apartment,
  effective_from, effective_to) rather than a mutable foreign key on the
  apartment. Historical eligibility queries stay correct after a sale: an
  apartment sold before the as-of date contributes to the former owner's
  aggregate for dates before the transfer and to the buyer's after it.

INVARIANT:
  An apartment has exactly one current owner at any instant. Transfers
  close the previous range the day before the new one opens; ranges for
  one apartment never overlap.
*/
package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// OWNERSHIP - One owner's tenure over one apartment
// =============================================================================

type Ownership struct {
	ID          string
	OwnerID     OwnerID
	ApartmentID ApartmentID

	EffectiveFrom Date
	// EffectiveTo is inclusive; nil = current holder.
	EffectiveTo *Date
}

// ActiveAt reports whether this ownership range covers d.
func (o Ownership) ActiveAt(d Date) bool {
	if d.Before(o.EffectiveFrom) {
		return false
	}
	if o.EffectiveTo != nil && d.After(*o.EffectiveTo) {
		return false
	}
	return true
}

// =============================================================================
// OWNER REGISTRY - Ownership lifecycle and as-of lookups
// =============================================================================

// OwnerRegistry answers "who holds what, when". All ownership writes go
// through here so ranges never overlap.
type OwnerRegistry struct {
	Store Store
}

func NewOwnerRegistry(store Store) *OwnerRegistry {
	return &OwnerRegistry{Store: store}
}

// Assign records initial ownership of an apartment. Fails if the apartment
// already has a current holder; use Transfer for sales.
func (r *OwnerRegistry) Assign(ctx context.Context, ownerID OwnerID, apartmentID ApartmentID, from Date) (Ownership, error) {
	if _, err := r.Store.Owner(ctx, ownerID); err != nil {
		return Ownership{}, err
	}
	if _, err := r.Store.Apartment(ctx, apartmentID); err != nil {
		return Ownership{}, err
	}

	ranges, err := r.Store.OwnershipsByApartment(ctx, apartmentID)
	if err != nil {
		return Ownership{}, err
	}
	for _, o := range ranges {
		if o.EffectiveTo == nil {
			return Ownership{}, fmt.Errorf("apartment %s already held by owner %s; transfer instead", apartmentID, o.OwnerID)
		}
	}

	own := Ownership{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		ApartmentID:   apartmentID,
		EffectiveFrom: from,
	}
	if err := r.Store.SaveOwnership(ctx, own); err != nil {
		return Ownership{}, err
	}
	return own, nil
}

// Transfer records a sale: the current holder's range closes the day before
// the effective date and the buyer's opens on it.
func (r *OwnerRegistry) Transfer(ctx context.Context, apartmentID ApartmentID, newOwner OwnerID, effective Date) (Ownership, error) {
	if _, err := r.Store.Owner(ctx, newOwner); err != nil {
		return Ownership{}, err
	}

	ranges, err := r.Store.OwnershipsByApartment(ctx, apartmentID)
	if err != nil {
		return Ownership{}, err
	}

	var current *Ownership
	for i := range ranges {
		if ranges[i].EffectiveTo == nil {
			current = &ranges[i]
			break
		}
	}
	if current == nil {
		return Ownership{}, fmt.Errorf("apartment %s has no current owner: %w", apartmentID, ErrUnknownApartment)
	}
	if !effective.After(current.EffectiveFrom) {
		return Ownership{}, fmt.Errorf("transfer of %s: effective date %s not after acquisition %s: %w",
			apartmentID, effective, current.EffectiveFrom, ErrInvalidTerm)
	}

	closed := effective.AddDays(-1)
	current.EffectiveTo = &closed
	if err := r.Store.SaveOwnership(ctx, *current); err != nil {
		return Ownership{}, err
	}

	own := Ownership{
		ID:            uuid.NewString(),
		OwnerID:       newOwner,
		ApartmentID:   apartmentID,
		EffectiveFrom: effective,
	}
	if err := r.Store.SaveOwnership(ctx, own); err != nil {
		return Ownership{}, err
	}
	return own, nil
}

// Apartments returns the apartments the owner holds as of the date.
func (r *OwnerRegistry) Apartments(ctx context.Context, ownerID OwnerID, asOf Date) ([]Ownership, error) {
	if _, err := r.Store.Owner(ctx, ownerID); err != nil {
		return nil, err
	}
	ranges, err := r.Store.OwnershipsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var held []Ownership
	for _, o := range ranges {
		if o.ActiveAt(asOf) {
			held = append(held, o)
		}
	}
	return held, nil
}

// OwnerOf returns who held the apartment as of the date.
func (r *OwnerRegistry) OwnerOf(ctx context.Context, apartmentID ApartmentID, asOf Date) (OwnerID, error) {
	ranges, err := r.Store.OwnershipsByApartment(ctx, apartmentID)
	if err != nil {
		return "", err
	}
	for _, o := range ranges {
		if o.ActiveAt(asOf) {
			return o.OwnerID, nil
		}
	}
	return "", fmt.Errorf("apartment %s has no owner as of %s: %w", apartmentID, asOf, ErrUnknownApartment)
}
