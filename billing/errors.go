/*
errors.go - Centralized error types for the billing core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every rejected operation is reported to the caller - money handling
  never coerces bad input (a negative payment is an error, never clamped
  to zero) and never retries on its own.

ERROR CATEGORIES:
  1. Validation errors - InvalidAmount, AlreadySettled, SchedulingConflict
  2. Lookup errors     - UnknownCharge/Owner/Apartment/Contract
  3. Ledger errors     - DuplicatePayment (idempotency)

USAGE:
  Callers match with errors.Is:

    if errors.Is(err, billing.ErrInvalidAmount) { ... }

  Structured variants carry detail and unwrap to the sentinels:

    var over *billing.OverpaymentError
    if errors.As(err, &over) { ... over.Attempted ... }
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for a non-positive payment or one that
	// would push cumulative payments past the charge total.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAlreadySettled is returned when paying a fully paid or
	// written-off charge.
	ErrAlreadySettled = errors.New("charge already settled")

	// ErrSchedulingConflict is returned for duplicate or out-of-range
	// charge generation.
	ErrSchedulingConflict = errors.New("scheduling conflict")

	// ErrDuplicatePayment is returned when a payment with the same
	// reference was already recorded. Expected behavior for retries.
	ErrDuplicatePayment = errors.New("duplicate payment reference")

	// Referential lookup failures.
	ErrUnknownCharge    = errors.New("charge not found")
	ErrUnknownOwner     = errors.New("owner not found")
	ErrUnknownApartment = errors.New("apartment not found")
	ErrUnknownContract  = errors.New("contract not found")

	// ErrContractTerminated is returned when modifying a contract that has
	// already ended. Terminated contracts are immutable; supersede with a
	// new contract instead.
	ErrContractTerminated = errors.New("contract already terminated")

	// ErrContractOverlap is returned when a contract's term would overlap
	// another active contract on the same apartment.
	ErrContractOverlap = errors.New("apartment already has an active contract in that range")

	// ErrInvalidTerm is returned when a date range ends before it starts.
	ErrInvalidTerm = errors.New("invalid term: end before start")

	// ErrDuplicateUnit is returned when an apartment's (floor, letter)
	// address is already taken.
	ErrDuplicateUnit = errors.New("duplicate apartment unit")

	// ErrNotUtility is returned when asking discount eligibility for a bill
	// type outside the discount program (rent, expenses, tax).
	ErrNotUtility = errors.New("bill type not covered by the discount program")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverpaymentError reports a payment that would exceed the charge total.
type OverpaymentError struct {
	ChargeID     ChargeID
	ChargeAmount Money
	AlreadyPaid  Money
	Attempted    Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s against charge %s exceeds total: %s already paid of %s",
		e.Attempted, e.ChargeID, e.AlreadyPaid, e.ChargeAmount)
}

func (e *OverpaymentError) Unwrap() error { return ErrInvalidAmount }

// SchedulingConflictError reports why charge generation was rejected.
type SchedulingConflictError struct {
	ApartmentID ApartmentID
	BillType    BillType
	Period      BillingPeriod

	// ExistingChargeID is set for duplicates; empty for out-of-range periods.
	ExistingChargeID ChargeID
	Reason           string
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("cannot generate %s charge for apartment %s in %s: %s",
		e.BillType, e.ApartmentID, e.Period, e.Reason)
}

func (e *SchedulingConflictError) Unwrap() error { return ErrSchedulingConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrSchedulingConflict) ||
		errors.Is(err, ErrDuplicatePayment) ||
		errors.Is(err, ErrContractTerminated) ||
		errors.Is(err, ErrContractOverlap) ||
		errors.Is(err, ErrInvalidTerm) ||
		errors.Is(err, ErrDuplicateUnit) ||
		errors.Is(err, ErrNotUtility)
}

// IsNotFound reports whether the error is a referential lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownCharge) ||
		errors.Is(err, ErrUnknownOwner) ||
		errors.Is(err, ErrUnknownApartment) ||
		errors.Is(err, ErrUnknownContract)
}
