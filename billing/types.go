/*
Package billing contains the core billing ledger for an apartment complex.

PURPOSE:
  This package holds the domain types and algorithms for the financial
  lifecycle of a building: contracts bind tenants to apartments, charges are
  generated from contracts per billing period, payments settle charges, and
  a lateness policy classifies every charge's timeliness at any as-of date.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A non-negative fixed-point amount (decimal, never float)
  - BillType: What a charge is for (rent, municipal, provincial, water, ...)
  - Charge: A single monetary obligation for one apartment and period
  - Payment: An immutable settlement event against a charge
  - Owner/Apartment: The building directory

DESIGN PRINCIPLES:
  1. Immutability: Payments are never modified; charges only transition
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing owner/apartment IDs
  4. Derivation: Paid-state is always recomputed from the payment log

SEE ALSO:
  - ledger.go: Payment recording and the cumulative-amount invariant
  - scheduler.go: Charge generation from contracts
  - lateness.go: Timeliness classification
*/
package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-point currency amount
// =============================================================================

// Money is a currency amount. Charges and payments are never negative;
// that rule is enforced where money enters the system, not here.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money       { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money  { return Money{Value: decimal.NewFromInt(value)} }
func ZeroMoney() Money                   { return Money{Value: decimal.Zero} }

// ParseMoney parses a decimal string. Malformed input is an InvalidAmount
// error - money entering the system is never coerced to zero.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("amount %q: %w", s, ErrInvalidAmount)
	}
	return Money{Value: d}, nil
}

// MustParseMoney is ParseMoney for literals in tests and fixtures.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool      { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool         { return m.Value.Equal(o.Value) }
func (m Money) GreaterOrEqual(o Money) bool { return !m.Value.LessThan(o.Value) }
func (m Money) String() string             { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	OwnerID     string
	ApartmentID string
	ContractID  string
	ChargeID    string
	PaymentID   string
	TenantID    string
)

func NewChargeID() ChargeID   { return ChargeID(uuid.NewString()) }
func NewPaymentID() PaymentID { return PaymentID(uuid.NewString()) }

// =============================================================================
// BILL TYPES
// =============================================================================

// BillType identifies what a charge is for. Rent and expenses come from the
// contract; municipal, provincial, water, and tax amounts are passed through
// from externally supplied meter readings or assessments.
type BillType string

const (
	BillRent       BillType = "rent"
	BillExpenses   BillType = "expenses"
	BillMunicipal  BillType = "municipal"
	BillProvincial BillType = "provincial"
	BillWater      BillType = "water"
	BillTax        BillType = "tax"
)

// UtilityBillTypes are the bill types covered by the municipal discount
// program. Only these participate in owner-level eligibility aggregation.
var UtilityBillTypes = []BillType{BillMunicipal, BillProvincial, BillWater}

// IsUtility reports whether the bill type participates in the discount program.
func (b BillType) IsUtility() bool {
	return b == BillMunicipal || b == BillProvincial || b == BillWater
}

func (b BillType) Valid() bool {
	switch b {
	case BillRent, BillExpenses, BillMunicipal, BillProvincial, BillWater, BillTax:
		return true
	}
	return false
}

// =============================================================================
// DIRECTORY - Owners and apartments
// =============================================================================

type Owner struct {
	ID    OwnerID
	Name  string
	Email string
}

// Apartment is a physical unit, addressed by floor and a single letter.
// (floor, letter) is unique within the building.
type Apartment struct {
	ID     ApartmentID
	Floor  int
	Letter string
}

// =============================================================================
// CHARGE - A single billed obligation
// =============================================================================

// ChargeStatus tracks payment progress. A charge is never deleted; it only
// transitions. Lateness (on_time/grace/late/unpaid) is a derived
// classification, not stored here - see lateness.go.
type ChargeStatus string

const (
	ChargePending       ChargeStatus = "pending"
	ChargePartiallyPaid ChargeStatus = "partially_paid"
	ChargePaid          ChargeStatus = "paid"
	ChargeLate          ChargeStatus = "late"
	ChargeWrittenOff    ChargeStatus = "written_off"
)

// Charge is one monetary obligation: one apartment, one billing period, one
// bill type. The triple (ApartmentID, BillType, Period) is the idempotency
// key for generation - a period can never hold two charges for the same
// apartment and bill type.
type Charge struct {
	ID          ChargeID
	ApartmentID ApartmentID
	ContractID  ContractID
	BillType    BillType
	Period      BillingPeriod
	Amount      Money
	DueDate     Date
	Status      ChargeStatus

	// Adjusted marks a rent charge generated on a contract's scheduled
	// adjustment boundary (every AdjustmentMonths from the start date).
	Adjusted bool

	CreatedAt Date
}

// ChargeKey is the natural key a period's charges are deduplicated on.
type ChargeKey struct {
	ApartmentID ApartmentID
	BillType    BillType
	Period      BillingPeriod
}

func (c Charge) Key() ChargeKey {
	return ChargeKey{ApartmentID: c.ApartmentID, BillType: c.BillType, Period: c.Period}
}

// Settled reports whether no further payment may be applied.
func (c Charge) Settled() bool {
	return c.Status == ChargePaid || c.Status == ChargeWrittenOff
}

// =============================================================================
// PAYMENT - Append-only settlement event
// =============================================================================

// Payment applies an amount against one charge. Payments are immutable facts:
// the ledger appends them and never updates or deletes. Multiple payments may
// settle a charge in parts; their sum never exceeds the charge amount.
type Payment struct {
	ID       PaymentID
	ChargeID ChargeID
	Amount   Money

	// PaidAt is when the money arrived - the date lateness and settlement
	// are judged against.
	PaidAt Date

	// Reference is a free-form external identifier (receipt number,
	// bank transfer ID).
	Reference string

	RecordedAt Date
}
