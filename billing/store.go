/*
store.go - Persistence interfaces for the billing ledger

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Everything the engine persists (directory, contracts,
           ownerships, charges, payments)
  TxStore: Store with transactional execution for atomic multi-write
           operations (append payment + transition charge)

APPEND-ONLY CONTRACT:
  Payments are append-only: AppendPayment is the only payment write, and no
  Update or Delete exists. Charges are never deleted; UpdateChargeStatus is
  the only mutation and only moves a charge along its lifecycle.

IDEMPOTENCY:
  CreateCharge enforces uniqueness on (apartment, bill type, period) and
  returns ErrSchedulingConflict on violation - the scheduler leans on this
  to stay idempotent under re-invocation. AppendPayment enforces uniqueness
  on a non-empty Reference and returns ErrDuplicatePayment.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  Production SQLite
  - billing/store/memory.go: In-memory for testing
*/
package billing

import "context"

// =============================================================================
// STORE - Persistence for all billing records
// =============================================================================

// DirectoryStore holds the thin owner/apartment records the CRUD surface
// reads. No domain logic lives here.
type DirectoryStore interface {
	SaveOwner(ctx context.Context, o Owner) error
	// Owner returns ErrUnknownOwner when absent.
	Owner(ctx context.Context, id OwnerID) (Owner, error)
	ListOwners(ctx context.Context) ([]Owner, error)

	// SaveApartment returns ErrDuplicateUnit when (floor, letter) is taken
	// by another apartment.
	SaveApartment(ctx context.Context, a Apartment) error
	// Apartment returns ErrUnknownApartment when absent.
	Apartment(ctx context.Context, id ApartmentID) (Apartment, error)
	ListApartments(ctx context.Context) ([]Apartment, error)
}

// ContractStore persists contracts.
type ContractStore interface {
	SaveContract(ctx context.Context, c Contract) error
	// Contract returns ErrUnknownContract when absent.
	Contract(ctx context.Context, id ContractID) (Contract, error)
	ContractsByApartment(ctx context.Context, apartmentID ApartmentID) ([]Contract, error)
	ListContracts(ctx context.Context) ([]Contract, error)
}

// OwnershipStore persists the time-ranged owner-apartment relation.
type OwnershipStore interface {
	// SaveOwnership inserts or updates one range (updates only ever set
	// EffectiveTo when a transfer closes the range).
	SaveOwnership(ctx context.Context, o Ownership) error
	OwnershipsByOwner(ctx context.Context, ownerID OwnerID) ([]Ownership, error)
	OwnershipsByApartment(ctx context.Context, apartmentID ApartmentID) ([]Ownership, error)
}

// ChargeStore persists charges. Charges are never deleted.
type ChargeStore interface {
	// CreateCharge inserts a charge. Returns ErrSchedulingConflict when a
	// charge with the same (apartment, bill type, period) already exists.
	CreateCharge(ctx context.Context, c Charge) error

	// Charge returns ErrUnknownCharge when absent.
	Charge(ctx context.Context, id ChargeID) (Charge, error)

	// ChargeByKey returns ErrUnknownCharge when absent.
	ChargeByKey(ctx context.Context, key ChargeKey) (Charge, error)

	// ChargesByApartment returns all charges for an apartment, ordered by
	// period then bill type. billType == "" means all bill types.
	ChargesByApartment(ctx context.Context, apartmentID ApartmentID, billType BillType) ([]Charge, error)

	// ListCharges returns every charge, ordered by period. Used by the
	// late-charge monitor and accountant views.
	ListCharges(ctx context.Context) ([]Charge, error)

	// UpdateChargeStatus moves a charge along its lifecycle.
	UpdateChargeStatus(ctx context.Context, id ChargeID, status ChargeStatus) error
}

// PaymentStore persists payments. APPEND-ONLY: no update, no delete, ever.
type PaymentStore interface {
	// AppendPayment adds one settlement event. Returns ErrDuplicatePayment
	// when a payment with the same non-empty Reference exists.
	AppendPayment(ctx context.Context, p Payment) error

	// PaymentsByCharge returns payments ordered by PaidAt then RecordedAt.
	PaymentsByCharge(ctx context.Context, chargeID ChargeID) ([]Payment, error)
}

// Store is everything a billing engine needs persisted.
type Store interface {
	DirectoryStore
	ContractStore
	OwnershipStore
	ChargeStore
	PaymentStore
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic multi-write operations
// =============================================================================

// TxStore wraps Store with transaction support. The payment ledger uses it
// so appending a payment and transitioning its charge either both happen
// or neither does.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
