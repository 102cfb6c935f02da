// Package store provides billing.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/edificio/billing-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	owners     map[billing.OwnerID]billing.Owner
	apartments map[billing.ApartmentID]billing.Apartment
	contracts  map[billing.ContractID]billing.Contract
	ownerships map[string]billing.Ownership
	charges    map[billing.ChargeID]billing.Charge
	chargeKeys map[billing.ChargeKey]billing.ChargeID
	payments   map[billing.ChargeID][]billing.Payment
	references map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		owners:     make(map[billing.OwnerID]billing.Owner),
		apartments: make(map[billing.ApartmentID]billing.Apartment),
		contracts:  make(map[billing.ContractID]billing.Contract),
		ownerships: make(map[string]billing.Ownership),
		charges:    make(map[billing.ChargeID]billing.Charge),
		chargeKeys: make(map[billing.ChargeKey]billing.ChargeID),
		payments:   make(map[billing.ChargeID][]billing.Payment),
		references: make(map[string]bool),
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) SaveOwner(_ context.Context, o billing.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[o.ID] = o
	return nil
}

func (m *Memory) Owner(_ context.Context, id billing.OwnerID) (billing.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.owners[id]
	if !ok {
		return billing.Owner{}, fmt.Errorf("owner %s: %w", id, billing.ErrUnknownOwner)
	}
	return o, nil
}

func (m *Memory) ListOwners(_ context.Context) ([]billing.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Owner, 0, len(m.owners))
	for _, o := range m.owners {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveApartment(_ context.Context, a billing.Apartment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.apartments {
		if existing.ID != a.ID && existing.Floor == a.Floor && existing.Letter == a.Letter {
			return fmt.Errorf("unit %d%s: %w", a.Floor, a.Letter, billing.ErrDuplicateUnit)
		}
	}
	m.apartments[a.ID] = a
	return nil
}

func (m *Memory) Apartment(_ context.Context, id billing.ApartmentID) (billing.Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.apartments[id]
	if !ok {
		return billing.Apartment{}, fmt.Errorf("apartment %s: %w", id, billing.ErrUnknownApartment)
	}
	return a, nil
}

func (m *Memory) ListApartments(_ context.Context) ([]billing.Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Apartment, 0, len(m.apartments))
	for _, a := range m.apartments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].Letter < out[j].Letter
	})
	return out, nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (m *Memory) SaveContract(_ context.Context, c billing.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = c
	return nil
}

func (m *Memory) Contract(_ context.Context, id billing.ContractID) (billing.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[id]
	if !ok {
		return billing.Contract{}, fmt.Errorf("contract %s: %w", id, billing.ErrUnknownContract)
	}
	return c, nil
}

func (m *Memory) ContractsByApartment(_ context.Context, apartmentID billing.ApartmentID) ([]billing.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Contract
	for _, c := range m.contracts {
		if c.ApartmentID == apartmentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) ListContracts(_ context.Context) ([]billing.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// OWNERSHIPS
// =============================================================================

func (m *Memory) SaveOwnership(_ context.Context, o billing.Ownership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerships[o.ID] = o
	return nil
}

func (m *Memory) OwnershipsByOwner(_ context.Context, ownerID billing.OwnerID) ([]billing.Ownership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Ownership
	for _, o := range m.ownerships {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.Before(out[j].EffectiveFrom) })
	return out, nil
}

func (m *Memory) OwnershipsByApartment(_ context.Context, apartmentID billing.ApartmentID) ([]billing.Ownership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Ownership
	for _, o := range m.ownerships {
		if o.ApartmentID == apartmentID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.Before(out[j].EffectiveFrom) })
	return out, nil
}

// =============================================================================
// CHARGES
// =============================================================================

func (m *Memory) CreateCharge(_ context.Context, c billing.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createChargeLocked(c)
}

func (m *Memory) createChargeLocked(c billing.Charge) error {
	key := c.Key()
	if existing, ok := m.chargeKeys[key]; ok {
		return &billing.SchedulingConflictError{
			ApartmentID:      c.ApartmentID,
			BillType:         c.BillType,
			Period:           c.Period,
			ExistingChargeID: existing,
			Reason:           "charge already exists for this period",
		}
	}
	m.charges[c.ID] = c
	m.chargeKeys[key] = c.ID
	return nil
}

func (m *Memory) Charge(_ context.Context, id billing.ChargeID) (billing.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chargeLocked(id)
}

func (m *Memory) chargeLocked(id billing.ChargeID) (billing.Charge, error) {
	c, ok := m.charges[id]
	if !ok {
		return billing.Charge{}, fmt.Errorf("charge %s: %w", id, billing.ErrUnknownCharge)
	}
	return c, nil
}

func (m *Memory) ChargeByKey(_ context.Context, key billing.ChargeKey) (billing.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.chargeKeys[key]
	if !ok {
		return billing.Charge{}, fmt.Errorf("charge for %s/%s/%s: %w",
			key.ApartmentID, key.BillType, key.Period, billing.ErrUnknownCharge)
	}
	return m.chargeLocked(id)
}

func (m *Memory) ChargesByApartment(_ context.Context, apartmentID billing.ApartmentID, billType billing.BillType) ([]billing.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Charge
	for _, c := range m.charges {
		if c.ApartmentID != apartmentID {
			continue
		}
		if billType != "" && c.BillType != billType {
			continue
		}
		out = append(out, c)
	}
	sortCharges(out)
	return out, nil
}

func (m *Memory) ListCharges(_ context.Context) ([]billing.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Charge, 0, len(m.charges))
	for _, c := range m.charges {
		out = append(out, c)
	}
	sortCharges(out)
	return out, nil
}

func (m *Memory) UpdateChargeStatus(_ context.Context, id billing.ChargeID, status billing.ChargeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[id]
	if !ok {
		return fmt.Errorf("charge %s: %w", id, billing.ErrUnknownCharge)
	}
	c.Status = status
	m.charges[id] = c
	return nil
}

func sortCharges(cs []billing.Charge) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].Period.Equal(cs[j].Period) {
			return cs[i].Period.Before(cs[j].Period)
		}
		if cs[i].BillType != cs[j].BillType {
			return cs[i].BillType < cs[j].BillType
		}
		return cs[i].ID < cs[j].ID
	})
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

func (m *Memory) AppendPayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendPaymentLocked(p)
}

func (m *Memory) appendPaymentLocked(p billing.Payment) error {
	if p.Reference != "" && m.references[p.Reference] {
		return billing.ErrDuplicatePayment
	}

	list := m.payments[p.ChargeID]

	// Binary search for insertion point keeps the log sorted by PaidAt.
	i := sort.Search(len(list), func(i int) bool {
		return list[i].PaidAt.After(p.PaidAt)
	})
	list = append(list, billing.Payment{})
	copy(list[i+1:], list[i:])
	list[i] = p
	m.payments[p.ChargeID] = list

	if p.Reference != "" {
		m.references[p.Reference] = true
	}
	return nil
}

func (m *Memory) PaymentsByCharge(_ context.Context, chargeID billing.ChargeID) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Payment, len(m.payments[chargeID]))
	copy(out, m.payments[chargeID])
	return out, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// Reset wipes all state. Dev/demo only, same contract as the SQLite reset.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owners = make(map[billing.OwnerID]billing.Owner)
	m.apartments = make(map[billing.ApartmentID]billing.Apartment)
	m.contracts = make(map[billing.ContractID]billing.Contract)
	m.ownerships = make(map[string]billing.Ownership)
	m.charges = make(map[billing.ChargeID]billing.Charge)
	m.chargeKeys = make(map[billing.ChargeKey]billing.ChargeID)
	m.payments = make(map[billing.ChargeID][]billing.Payment)
	m.references = make(map[string]bool)
	return nil
}

// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a snapshot
// + rollback on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	charges    map[billing.ChargeID]billing.Charge
	payments   map[billing.ChargeID][]billing.Payment
	references map[string]bool
}

func (tm *TxMemory) snapshot() memorySnapshot {
	charges := make(map[billing.ChargeID]billing.Charge, len(tm.charges))
	for k, v := range tm.charges {
		charges[k] = v
	}
	payments := make(map[billing.ChargeID][]billing.Payment, len(tm.payments))
	for k, v := range tm.payments {
		payments[k] = append([]billing.Payment{}, v...)
	}
	references := make(map[string]bool, len(tm.references))
	for k, v := range tm.references {
		references[k] = v
	}
	return memorySnapshot{charges: charges, payments: payments, references: references}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.charges = s.charges
	tm.payments = s.payments
	tm.references = s.references
}

// txMemoryView executes against the parent with the lock already held.
// Only the operations a ledger transaction touches bypass the lock; the
// rest delegate through the embedded parent and would deadlock if used
// inside WithTx, which no caller does.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) AppendPayment(_ context.Context, p billing.Payment) error {
	return tv.parent.appendPaymentLocked(p)
}

func (tv *txMemoryView) PaymentsByCharge(_ context.Context, chargeID billing.ChargeID) ([]billing.Payment, error) {
	out := make([]billing.Payment, len(tv.parent.payments[chargeID]))
	copy(out, tv.parent.payments[chargeID])
	return out, nil
}

func (tv *txMemoryView) CreateCharge(_ context.Context, c billing.Charge) error {
	return tv.parent.createChargeLocked(c)
}

func (tv *txMemoryView) Charge(_ context.Context, id billing.ChargeID) (billing.Charge, error) {
	return tv.parent.chargeLocked(id)
}

func (tv *txMemoryView) ChargeByKey(_ context.Context, key billing.ChargeKey) (billing.Charge, error) {
	id, ok := tv.parent.chargeKeys[key]
	if !ok {
		return billing.Charge{}, billing.ErrUnknownCharge
	}
	return tv.parent.chargeLocked(id)
}

func (tv *txMemoryView) ChargesByApartment(_ context.Context, apartmentID billing.ApartmentID, billType billing.BillType) ([]billing.Charge, error) {
	var out []billing.Charge
	for _, c := range tv.parent.charges {
		if c.ApartmentID == apartmentID && (billType == "" || c.BillType == billType) {
			out = append(out, c)
		}
	}
	sortCharges(out)
	return out, nil
}

func (tv *txMemoryView) ListCharges(_ context.Context) ([]billing.Charge, error) {
	out := make([]billing.Charge, 0, len(tv.parent.charges))
	for _, c := range tv.parent.charges {
		out = append(out, c)
	}
	sortCharges(out)
	return out, nil
}

func (tv *txMemoryView) UpdateChargeStatus(_ context.Context, id billing.ChargeID, status billing.ChargeStatus) error {
	c, ok := tv.parent.charges[id]
	if !ok {
		return fmt.Errorf("charge %s: %w", id, billing.ErrUnknownCharge)
	}
	c.Status = status
	tv.parent.charges[id] = c
	return nil
}

// Directory/contract/ownership operations are not part of any ledger
// transaction; they delegate to the parent maps directly.
func (tv *txMemoryView) SaveOwner(_ context.Context, o billing.Owner) error {
	tv.parent.owners[o.ID] = o
	return nil
}

func (tv *txMemoryView) Owner(_ context.Context, id billing.OwnerID) (billing.Owner, error) {
	o, ok := tv.parent.owners[id]
	if !ok {
		return billing.Owner{}, billing.ErrUnknownOwner
	}
	return o, nil
}

func (tv *txMemoryView) ListOwners(ctx context.Context) ([]billing.Owner, error) {
	out := make([]billing.Owner, 0, len(tv.parent.owners))
	for _, o := range tv.parent.owners {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txMemoryView) SaveApartment(_ context.Context, a billing.Apartment) error {
	tv.parent.apartments[a.ID] = a
	return nil
}

func (tv *txMemoryView) Apartment(_ context.Context, id billing.ApartmentID) (billing.Apartment, error) {
	a, ok := tv.parent.apartments[id]
	if !ok {
		return billing.Apartment{}, billing.ErrUnknownApartment
	}
	return a, nil
}

func (tv *txMemoryView) ListApartments(ctx context.Context) ([]billing.Apartment, error) {
	out := make([]billing.Apartment, 0, len(tv.parent.apartments))
	for _, a := range tv.parent.apartments {
		out = append(out, a)
	}
	return out, nil
}

func (tv *txMemoryView) SaveContract(_ context.Context, c billing.Contract) error {
	tv.parent.contracts[c.ID] = c
	return nil
}

func (tv *txMemoryView) Contract(_ context.Context, id billing.ContractID) (billing.Contract, error) {
	c, ok := tv.parent.contracts[id]
	if !ok {
		return billing.Contract{}, billing.ErrUnknownContract
	}
	return c, nil
}

func (tv *txMemoryView) ContractsByApartment(_ context.Context, apartmentID billing.ApartmentID) ([]billing.Contract, error) {
	var out []billing.Contract
	for _, c := range tv.parent.contracts {
		if c.ApartmentID == apartmentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (tv *txMemoryView) ListContracts(ctx context.Context) ([]billing.Contract, error) {
	out := make([]billing.Contract, 0, len(tv.parent.contracts))
	for _, c := range tv.parent.contracts {
		out = append(out, c)
	}
	return out, nil
}

func (tv *txMemoryView) SaveOwnership(_ context.Context, o billing.Ownership) error {
	tv.parent.ownerships[o.ID] = o
	return nil
}

func (tv *txMemoryView) OwnershipsByOwner(_ context.Context, ownerID billing.OwnerID) ([]billing.Ownership, error) {
	var out []billing.Ownership
	for _, o := range tv.parent.ownerships {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (tv *txMemoryView) OwnershipsByApartment(_ context.Context, apartmentID billing.ApartmentID) ([]billing.Ownership, error) {
	var out []billing.Ownership
	for _, o := range tv.parent.ownerships {
		if o.ApartmentID == apartmentID {
			out = append(out, o)
		}
	}
	return out, nil
}
