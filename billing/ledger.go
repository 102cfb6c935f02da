/*
ledger.go - The payment ledger

PURPOSE:
  The ledger is the single source of truth for "how much has been paid and
  when". No other component may infer payment state except by reading it.
  Payments are append-only facts; the charge's paid-state is recomputed from
  them on every write, never trusted from a cached field elsewhere.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Payments are never updated or deleted
  2. NON-NEGATIVE: No negative or zero payment is ever accepted
  3. BOUNDED: sum(payments) <= charge amount, always
  4. ATOMIC: Appending a payment and transitioning the charge happen in one
     store transaction - no partial settlement is ever visible

CONCURRENCY:
  Payments against the SAME charge are serialized by a charge-scoped mutex,
  so the cumulative-amount check cannot race. Payments against different
  charges proceed independently. Reads take no lock: eligibility queries run
  concurrently with ingestion and see a per-charge-consistent snapshot.

CORRECTIONS:
  A wrongly recorded payment is not edited. The charge is written off or the
  books corrected with a compensating charge - history is preserved.
*/
package billing

import (
	"context"
	"fmt"
	"sync"
)

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

// PaymentLedger records payments against charges and keeps charge paid-state
// in lockstep with the payment log.
type PaymentLedger struct {
	store TxStore

	mu    sync.Mutex
	locks map[ChargeID]*sync.Mutex
}

func NewPaymentLedger(store TxStore) *PaymentLedger {
	return &PaymentLedger{
		store: store,
		locks: make(map[ChargeID]*sync.Mutex),
	}
}

// chargeLock returns the mutex serializing writes for one charge.
func (l *PaymentLedger) chargeLock(id ChargeID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Record appends a payment against a charge and transitions the charge's
// status. Validation, in order:
//   - amount must be strictly positive          -> ErrInvalidAmount
//   - charge must exist                         -> ErrUnknownCharge
//   - charge must not be paid or written off    -> ErrAlreadySettled
//   - cumulative payments must not exceed total -> OverpaymentError
//
// Any rejection leaves the ledger exactly as it was.
func (l *PaymentLedger) Record(ctx context.Context, chargeID ChargeID, amount Money, paidAt Date, reference string) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, fmt.Errorf("payment of %s against charge %s: %w", amount, chargeID, ErrInvalidAmount)
	}

	lock := l.chargeLock(chargeID)
	lock.Lock()
	defer lock.Unlock()

	charge, err := l.store.Charge(ctx, chargeID)
	if err != nil {
		return Payment{}, err
	}
	if charge.Settled() {
		return Payment{}, fmt.Errorf("charge %s is %s: %w", chargeID, charge.Status, ErrAlreadySettled)
	}

	paid, err := l.paidTotal(ctx, l.store, chargeID)
	if err != nil {
		return Payment{}, err
	}
	if paid.Add(amount).GreaterThan(charge.Amount) {
		return Payment{}, &OverpaymentError{
			ChargeID:     chargeID,
			ChargeAmount: charge.Amount,
			AlreadyPaid:  paid,
			Attempted:    amount,
		}
	}

	payment := Payment{
		ID:         NewPaymentID(),
		ChargeID:   chargeID,
		Amount:     amount,
		PaidAt:     paidAt,
		Reference:  reference,
		RecordedAt: Today(),
	}

	status := ChargePartiallyPaid
	if paid.Add(amount).Equal(charge.Amount) {
		status = ChargePaid
	}

	err = l.store.WithTx(ctx, func(s Store) error {
		if err := s.AppendPayment(ctx, payment); err != nil {
			return err
		}
		return s.UpdateChargeStatus(ctx, chargeID, status)
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// WriteOff forgives a charge's remaining balance. Written-off charges accept
// no further payment and stop counting against discount eligibility.
func (l *PaymentLedger) WriteOff(ctx context.Context, chargeID ChargeID) (Charge, error) {
	lock := l.chargeLock(chargeID)
	lock.Lock()
	defer lock.Unlock()

	charge, err := l.store.Charge(ctx, chargeID)
	if err != nil {
		return Charge{}, err
	}
	if charge.Settled() {
		return Charge{}, fmt.Errorf("charge %s is %s: %w", chargeID, charge.Status, ErrAlreadySettled)
	}

	if err := l.store.UpdateChargeStatus(ctx, chargeID, ChargeWrittenOff); err != nil {
		return Charge{}, err
	}
	charge.Status = ChargeWrittenOff
	return charge, nil
}

// MarkLate transitions an unsettled, unpaid-past-grace charge to the late
// status. Called by the monitoring layer when the classification crosses
// into late; the derived classification itself never depends on this flag.
func (l *PaymentLedger) MarkLate(ctx context.Context, chargeID ChargeID) error {
	lock := l.chargeLock(chargeID)
	lock.Lock()
	defer lock.Unlock()

	charge, err := l.store.Charge(ctx, chargeID)
	if err != nil {
		return err
	}
	if charge.Settled() || charge.Status == ChargeLate {
		return nil
	}
	return l.store.UpdateChargeStatus(ctx, chargeID, ChargeLate)
}

// =============================================================================
// READ SIDE
// =============================================================================

// Payments returns the full settlement history of a charge.
func (l *PaymentLedger) Payments(ctx context.Context, chargeID ChargeID) ([]Payment, error) {
	if _, err := l.store.Charge(ctx, chargeID); err != nil {
		return nil, err
	}
	return l.store.PaymentsByCharge(ctx, chargeID)
}

// PaidAmount returns cumulative payments against a charge with PaidAt on or
// before asOf.
func (l *PaymentLedger) PaidAmount(ctx context.Context, chargeID ChargeID, asOf Date) (Money, error) {
	payments, err := l.store.PaymentsByCharge(ctx, chargeID)
	if err != nil {
		return Money{}, err
	}
	total := ZeroMoney()
	for _, p := range payments {
		if p.PaidAt.BeforeOrEqual(asOf) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

// SettledAt returns the date cumulative payments first covered the charge's
// full amount, or nil while the ledger shows it unsettled. Pure function of
// the payment log - used for on_time classification and restoration dates.
func SettledAt(charge Charge, payments []Payment) *Date {
	running := ZeroMoney()
	for _, p := range payments {
		running = running.Add(p.Amount)
		if running.GreaterOrEqual(charge.Amount) {
			d := p.PaidAt
			return &d
		}
	}
	return nil
}

func (l *PaymentLedger) paidTotal(ctx context.Context, s Store, chargeID ChargeID) (Money, error) {
	payments, err := s.PaymentsByCharge(ctx, chargeID)
	if err != nil {
		return Money{}, err
	}
	total := ZeroMoney()
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}
