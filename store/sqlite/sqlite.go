/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements billing.Store and billing.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The Store enforces append-only semantics on payments:
  - No UPDATE statements on the payments table
  - No DELETE statements on the payments table
  - Corrections via write-off or compensating charges only
  Charges are never deleted; the only charge mutation is the status column.

KEY TABLES:
  owners:      Building directory (owner records)
  apartments:  Physical units, addressed (floor, letter)
  ownerships:  Time-ranged owner-apartment relation
  contracts:   Tenancy contracts with bill responsibilities
  charges:     One obligation per (apartment, bill type, period)
  payments:    Immutable settlement log

INDEXES:
  - idx_unique_charge_key:   Enforces the scheduler's idempotency key
  - idx_unique_unit:         Enforces one apartment per (floor, letter)
  - idx_payments_reference:  Enforces payment reference idempotency
  - idx_payments_charge:     Payment history lookups (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := billing.NewPaymentLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/ledger.go: Higher-level ledger using Store
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/edificio/billing-engine/billing"
)

// Store implements billing.Store and billing.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Owners (building directory)
	CREATE TABLE IF NOT EXISTS owners (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Apartments, addressed by (floor, letter)
	CREATE TABLE IF NOT EXISTS apartments (
		id TEXT PRIMARY KEY,
		floor INTEGER NOT NULL,
		letter TEXT NOT NULL CHECK (length(letter) = 1),
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_unit
		ON apartments(floor, letter);

	-- Ownerships (time-ranged owner-apartment relation)
	CREATE TABLE IF NOT EXISTS ownerships (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		apartment_id TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ownerships_owner
		ON ownerships(owner_id);
	CREATE INDEX IF NOT EXISTS idx_ownerships_apartment
		ON ownerships(apartment_id);

	-- Contracts
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		apartment_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		rent TEXT NOT NULL,
		responsibilities_json TEXT,
		adjustment_months INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_apartment
		ON contracts(apartment_id, start_date);

	-- Charges (one per apartment, bill type, period; never deleted)
	CREATE TABLE IF NOT EXISTS charges (
		id TEXT PRIMARY KEY,
		apartment_id TEXT NOT NULL,
		contract_id TEXT NOT NULL,
		bill_type TEXT NOT NULL,
		period TEXT NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		adjusted BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: Enforce the scheduler's idempotency key
	-- An apartment cannot carry two charges for the same bill type and
	-- billing period (e.g., can't be billed water twice for March)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_charge_key
		ON charges(apartment_id, bill_type, period);

	-- Composite index for per-apartment charge queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_charges_apartment_period
		ON charges(apartment_id, period, bill_type);

	-- For status filtering (late-charge monitor)
	CREATE INDEX IF NOT EXISTS idx_charges_status
		ON charges(status);

	-- Payments (append-only settlement log)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		charge_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		reference TEXT,
		recorded_at TEXT NOT NULL
	);

	-- For settlement history lookups (hot path)
	CREATE INDEX IF NOT EXISTS idx_payments_charge
		ON payments(charge_id, paid_at);

	-- Enforce reference idempotency for retried submissions
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_reference
		ON payments(reference) WHERE reference IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// DIRECTORY STORE
// =============================================================================

// SaveOwner inserts or updates an owner record.
func (s *Store) SaveOwner(ctx context.Context, o billing.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveOwner(ctx, s.db, o)
}

func saveOwner(ctx context.Context, db execer, o billing.Owner) error {
	query := `
		INSERT INTO owners (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email
	`
	_, err := db.ExecContext(ctx, query,
		o.ID, o.Name, o.Email, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Owner retrieves an owner by ID.
func (s *Store) Owner(ctx context.Context, id billing.OwnerID) (billing.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOwner(ctx, s.db, id)
}

func getOwner(ctx context.Context, db querier, id billing.OwnerID) (billing.Owner, error) {
	var o billing.Owner
	err := db.QueryRowContext(ctx,
		"SELECT id, name, email FROM owners WHERE id = ?", id,
	).Scan(&o.ID, &o.Name, &o.Email)
	if err == sql.ErrNoRows {
		return billing.Owner{}, fmt.Errorf("owner %s: %w", id, billing.ErrUnknownOwner)
	}
	if err != nil {
		return billing.Owner{}, err
	}
	return o, nil
}

// ListOwners returns all owners.
func (s *Store) ListOwners(ctx context.Context) ([]billing.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOwners(ctx, s.db)
}

func listOwners(ctx context.Context, db querier) ([]billing.Owner, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name, email FROM owners ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []billing.Owner
	for rows.Next() {
		var o billing.Owner
		if err := rows.Scan(&o.ID, &o.Name, &o.Email); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// SaveApartment inserts or updates an apartment record.
func (s *Store) SaveApartment(ctx context.Context, a billing.Apartment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveApartment(ctx, s.db, a)
}

func saveApartment(ctx context.Context, db execer, a billing.Apartment) error {
	query := `
		INSERT INTO apartments (id, floor, letter, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			floor = excluded.floor,
			letter = excluded.letter
	`
	_, err := db.ExecContext(ctx, query,
		a.ID, a.Floor, a.Letter, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("unit %d%s: %w", a.Floor, a.Letter, billing.ErrDuplicateUnit)
		}
		return fmt.Errorf("failed to save apartment: %w", err)
	}
	return nil
}

// Apartment retrieves an apartment by ID.
func (s *Store) Apartment(ctx context.Context, id billing.ApartmentID) (billing.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getApartment(ctx, s.db, id)
}

func getApartment(ctx context.Context, db querier, id billing.ApartmentID) (billing.Apartment, error) {
	var a billing.Apartment
	err := db.QueryRowContext(ctx,
		"SELECT id, floor, letter FROM apartments WHERE id = ?", id,
	).Scan(&a.ID, &a.Floor, &a.Letter)
	if err == sql.ErrNoRows {
		return billing.Apartment{}, fmt.Errorf("apartment %s: %w", id, billing.ErrUnknownApartment)
	}
	if err != nil {
		return billing.Apartment{}, err
	}
	return a, nil
}

// ListApartments returns all apartments ordered by address.
func (s *Store) ListApartments(ctx context.Context) ([]billing.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listApartments(ctx, s.db)
}

func listApartments(ctx context.Context, db querier) ([]billing.Apartment, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, floor, letter FROM apartments ORDER BY floor, letter")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apartments []billing.Apartment
	for rows.Next() {
		var a billing.Apartment
		if err := rows.Scan(&a.ID, &a.Floor, &a.Letter); err != nil {
			return nil, err
		}
		apartments = append(apartments, a)
	}
	return apartments, rows.Err()
}

// =============================================================================
// CONTRACT STORE
// =============================================================================

// SaveContract inserts or updates a contract.
func (s *Store) SaveContract(ctx context.Context, c billing.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveContract(ctx, s.db, c)
}

func saveContract(ctx context.Context, db execer, c billing.Contract) error {
	respJSON, _ := json.Marshal(c.Responsibilities)

	query := `
		INSERT INTO contracts
		(id, tenant_id, apartment_id, start_date, end_date, rent, responsibilities_json, adjustment_months)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			end_date = excluded.end_date,
			rent = excluded.rent,
			responsibilities_json = excluded.responsibilities_json,
			adjustment_months = excluded.adjustment_months
	`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.TenantID, c.ApartmentID,
		c.Start.String(), nullDate(c.End),
		c.Rent.String(), string(respJSON), c.AdjustmentMonths,
	)
	return err
}

// Contract retrieves a contract by ID.
func (s *Store) Contract(ctx context.Context, id billing.ContractID) (billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getContract(ctx, s.db, id)
}

func getContract(ctx context.Context, db querier, id billing.ContractID) (billing.Contract, error) {
	query := contractSelect + " WHERE id = ?"
	contracts, err := queryContracts(ctx, db, query, id)
	if err != nil {
		return billing.Contract{}, err
	}
	if len(contracts) == 0 {
		return billing.Contract{}, fmt.Errorf("contract %s: %w", id, billing.ErrUnknownContract)
	}
	return contracts[0], nil
}

// ContractsByApartment returns the apartment's contracts ordered by start date.
func (s *Store) ContractsByApartment(ctx context.Context, apartmentID billing.ApartmentID) ([]billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := contractSelect + " WHERE apartment_id = ? ORDER BY start_date ASC"
	return queryContracts(ctx, s.db, query, apartmentID)
}

// ListContracts returns all contracts.
func (s *Store) ListContracts(ctx context.Context) ([]billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := contractSelect + " ORDER BY id"
	return queryContracts(ctx, s.db, query)
}

const contractSelect = `
	SELECT id, tenant_id, apartment_id, start_date, end_date, rent,
	       responsibilities_json, adjustment_months
	FROM contracts`

func queryContracts(ctx context.Context, db querier, query string, args ...any) ([]billing.Contract, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []billing.Contract
	for rows.Next() {
		var (
			c         billing.Contract
			startDate string
			endDate   sql.NullString
			rent      string
			respJSON  sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ApartmentID,
			&startDate, &endDate, &rent, &respJSON, &c.AdjustmentMonths); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}

		c.Start, _ = billing.ParseDate(startDate)
		if endDate.Valid {
			d, _ := billing.ParseDate(endDate.String)
			c.End = &d
		}
		if c.Rent, err = billing.ParseMoney(rent); err != nil {
			return nil, fmt.Errorf("contract %s: %w", c.ID, err)
		}
		if respJSON.Valid && respJSON.String != "" {
			json.Unmarshal([]byte(respJSON.String), &c.Responsibilities)
		}

		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// =============================================================================
// OWNERSHIP STORE
// =============================================================================

// SaveOwnership inserts or updates one ownership range.
func (s *Store) SaveOwnership(ctx context.Context, o billing.Ownership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveOwnership(ctx, s.db, o)
}

func saveOwnership(ctx context.Context, db execer, o billing.Ownership) error {
	query := `
		INSERT INTO ownerships (id, owner_id, apartment_id, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			effective_to = excluded.effective_to
	`
	_, err := db.ExecContext(ctx, query,
		o.ID, o.OwnerID, o.ApartmentID,
		o.EffectiveFrom.String(), nullDate(o.EffectiveTo),
	)
	return err
}

// OwnershipsByOwner returns all ranges for an owner ordered by start.
func (s *Store) OwnershipsByOwner(ctx context.Context, ownerID billing.OwnerID) ([]billing.Ownership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := ownershipSelect + " WHERE owner_id = ? ORDER BY effective_from ASC"
	return queryOwnerships(ctx, s.db, query, ownerID)
}

// OwnershipsByApartment returns all ranges for an apartment ordered by start.
func (s *Store) OwnershipsByApartment(ctx context.Context, apartmentID billing.ApartmentID) ([]billing.Ownership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := ownershipSelect + " WHERE apartment_id = ? ORDER BY effective_from ASC"
	return queryOwnerships(ctx, s.db, query, apartmentID)
}

const ownershipSelect = `
	SELECT id, owner_id, apartment_id, effective_from, effective_to
	FROM ownerships`

func queryOwnerships(ctx context.Context, db querier, query string, args ...any) ([]billing.Ownership, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ownerships: %w", err)
	}
	defer rows.Close()

	var ownerships []billing.Ownership
	for rows.Next() {
		var (
			o    billing.Ownership
			from string
			to   sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.ApartmentID, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan ownership: %w", err)
		}
		o.EffectiveFrom, _ = billing.ParseDate(from)
		if to.Valid {
			d, _ := billing.ParseDate(to.String)
			o.EffectiveTo = &d
		}
		ownerships = append(ownerships, o)
	}
	return ownerships, rows.Err()
}

// =============================================================================
// CHARGE STORE
// =============================================================================

// CreateCharge inserts a charge, enforcing the (apartment, bill type, period)
// idempotency key.
func (s *Store) CreateCharge(ctx context.Context, c billing.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCharge(ctx, s.db, c)
}

func (s *Store) createCharge(ctx context.Context, db querier, c billing.Charge) error {
	query := `
		INSERT INTO charges
		(id, apartment_id, contract_id, bill_type, period, amount, due_date, status, adjusted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		c.ID, c.ApartmentID, c.ContractID, c.BillType, c.Period.String(),
		c.Amount.String(), c.DueDate.String(), c.Status, c.Adjusted,
		c.CreatedAt.String(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			existing, lookupErr := s.chargeByKey(ctx, db, c.Key())
			conflict := &billing.SchedulingConflictError{
				ApartmentID: c.ApartmentID,
				BillType:    c.BillType,
				Period:      c.Period,
				Reason:      "charge already exists for this period",
			}
			if lookupErr == nil {
				conflict.ExistingChargeID = existing.ID
			}
			return conflict
		}
		return fmt.Errorf("failed to create charge: %w", err)
	}
	return nil
}

// Charge retrieves a charge by ID.
func (s *Store) Charge(ctx context.Context, id billing.ChargeID) (billing.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCharge(ctx, s.db, id)
}

func (s *Store) getCharge(ctx context.Context, db querier, id billing.ChargeID) (billing.Charge, error) {
	query := chargeSelect + " WHERE id = ?"
	charges, err := s.queryCharges(ctx, db, query, id)
	if err != nil {
		return billing.Charge{}, err
	}
	if len(charges) == 0 {
		return billing.Charge{}, fmt.Errorf("charge %s: %w", id, billing.ErrUnknownCharge)
	}
	return charges[0], nil
}

// ChargeByKey retrieves a charge by its natural key.
func (s *Store) ChargeByKey(ctx context.Context, key billing.ChargeKey) (billing.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chargeByKey(ctx, s.db, key)
}

func (s *Store) chargeByKey(ctx context.Context, db querier, key billing.ChargeKey) (billing.Charge, error) {
	query := chargeSelect + " WHERE apartment_id = ? AND bill_type = ? AND period = ?"
	charges, err := s.queryCharges(ctx, db, query, key.ApartmentID, key.BillType, key.Period.String())
	if err != nil {
		return billing.Charge{}, err
	}
	if len(charges) == 0 {
		return billing.Charge{}, fmt.Errorf("charge for %s/%s/%s: %w",
			key.ApartmentID, key.BillType, key.Period, billing.ErrUnknownCharge)
	}
	return charges[0], nil
}

// ChargesByApartment returns the apartment's charges ordered by period then
// bill type. billType == "" means all bill types.
func (s *Store) ChargesByApartment(ctx context.Context, apartmentID billing.ApartmentID, billType billing.BillType) ([]billing.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if billType == "" {
		query := chargeSelect + " WHERE apartment_id = ? ORDER BY period ASC, bill_type ASC"
		return s.queryCharges(ctx, s.db, query, apartmentID)
	}
	query := chargeSelect + " WHERE apartment_id = ? AND bill_type = ? ORDER BY period ASC"
	return s.queryCharges(ctx, s.db, query, apartmentID, billType)
}

// ListCharges returns every charge ordered by period.
func (s *Store) ListCharges(ctx context.Context) ([]billing.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := chargeSelect + " ORDER BY period ASC, bill_type ASC, id ASC"
	return s.queryCharges(ctx, s.db, query)
}

// UpdateChargeStatus moves a charge along its lifecycle. The only charge
// mutation in the schema.
func (s *Store) UpdateChargeStatus(ctx context.Context, id billing.ChargeID, status billing.ChargeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateChargeStatus(ctx, s.db, id, status)
}

func updateChargeStatus(ctx context.Context, db execer, id billing.ChargeID, status billing.ChargeStatus) error {
	res, err := db.ExecContext(ctx,
		"UPDATE charges SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update charge status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("charge %s: %w", id, billing.ErrUnknownCharge)
	}
	return nil
}

const chargeSelect = `
	SELECT id, apartment_id, contract_id, bill_type, period, amount,
	       due_date, status, adjusted, created_at
	FROM charges`

func (s *Store) queryCharges(ctx context.Context, db querier, query string, args ...any) ([]billing.Charge, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query charges: %w", err)
	}
	defer rows.Close()

	var charges []billing.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

func scanCharge(rows *sql.Rows) (billing.Charge, error) {
	var (
		c         billing.Charge
		period    string
		amount    string
		dueDate   string
		createdAt string
	)
	err := rows.Scan(&c.ID, &c.ApartmentID, &c.ContractID, &c.BillType,
		&period, &amount, &dueDate, &c.Status, &c.Adjusted, &createdAt)
	if err != nil {
		return c, fmt.Errorf("failed to scan charge: %w", err)
	}

	c.Period, _ = billing.ParsePeriod(period)
	if c.Amount, err = billing.ParseMoney(amount); err != nil {
		return c, fmt.Errorf("charge %s: %w", c.ID, err)
	}
	c.DueDate, _ = billing.ParseDate(dueDate)
	c.CreatedAt, _ = billing.ParseDate(createdAt)
	return c, nil
}

// =============================================================================
// PAYMENT STORE (append-only)
// =============================================================================

// AppendPayment adds one settlement event to the log.
func (s *Store) AppendPayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendPayment(ctx, s.db, p)
}

func appendPayment(ctx context.Context, db execer, p billing.Payment) error {
	query := `
		INSERT INTO payments (id, charge_id, amount, paid_at, reference, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		p.ID, p.ChargeID, p.Amount.String(), p.PaidAt.String(),
		nullString(p.Reference), p.RecordedAt.String(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

// PaymentsByCharge returns the charge's payments ordered by paid-at date.
func (s *Store) PaymentsByCharge(ctx context.Context, chargeID billing.ChargeID) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayments(ctx, s.db, chargeID)
}

func queryPayments(ctx context.Context, db querier, chargeID billing.ChargeID) ([]billing.Payment, error) {
	query := `
		SELECT id, charge_id, amount, paid_at, reference, recorded_at
		FROM payments
		WHERE charge_id = ?
		ORDER BY paid_at ASC, recorded_at ASC
	`
	rows, err := db.QueryContext(ctx, query, chargeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		var (
			p          billing.Payment
			amount     string
			paidAt     string
			reference  sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&p.ID, &p.ChargeID, &amount, &paidAt, &reference, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Amount, err = billing.ParseMoney(amount); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		p.PaidAt, _ = billing.ParseDate(paidAt)
		p.Reference = reference.String
		p.RecordedAt, _ = billing.ParseDate(recordedAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (billing.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store billing.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every operation against the open *sql.Tx, so fn sees its
// own uncommitted writes.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) SaveOwner(ctx context.Context, o billing.Owner) error {
	return saveOwner(ctx, ts.tx, o)
}

func (ts *txStore) Owner(ctx context.Context, id billing.OwnerID) (billing.Owner, error) {
	return getOwner(ctx, ts.tx, id)
}

func (ts *txStore) ListOwners(ctx context.Context) ([]billing.Owner, error) {
	return listOwners(ctx, ts.tx)
}

func (ts *txStore) SaveApartment(ctx context.Context, a billing.Apartment) error {
	return saveApartment(ctx, ts.tx, a)
}

func (ts *txStore) Apartment(ctx context.Context, id billing.ApartmentID) (billing.Apartment, error) {
	return getApartment(ctx, ts.tx, id)
}

func (ts *txStore) ListApartments(ctx context.Context) ([]billing.Apartment, error) {
	return listApartments(ctx, ts.tx)
}

func (ts *txStore) SaveContract(ctx context.Context, c billing.Contract) error {
	return saveContract(ctx, ts.tx, c)
}

func (ts *txStore) Contract(ctx context.Context, id billing.ContractID) (billing.Contract, error) {
	return getContract(ctx, ts.tx, id)
}

func (ts *txStore) ContractsByApartment(ctx context.Context, apartmentID billing.ApartmentID) ([]billing.Contract, error) {
	query := contractSelect + " WHERE apartment_id = ? ORDER BY start_date ASC"
	return queryContracts(ctx, ts.tx, query, apartmentID)
}

func (ts *txStore) ListContracts(ctx context.Context) ([]billing.Contract, error) {
	query := contractSelect + " ORDER BY id"
	return queryContracts(ctx, ts.tx, query)
}

func (ts *txStore) SaveOwnership(ctx context.Context, o billing.Ownership) error {
	return saveOwnership(ctx, ts.tx, o)
}

func (ts *txStore) OwnershipsByOwner(ctx context.Context, ownerID billing.OwnerID) ([]billing.Ownership, error) {
	query := ownershipSelect + " WHERE owner_id = ? ORDER BY effective_from ASC"
	return queryOwnerships(ctx, ts.tx, query, ownerID)
}

func (ts *txStore) OwnershipsByApartment(ctx context.Context, apartmentID billing.ApartmentID) ([]billing.Ownership, error) {
	query := ownershipSelect + " WHERE apartment_id = ? ORDER BY effective_from ASC"
	return queryOwnerships(ctx, ts.tx, query, apartmentID)
}

func (ts *txStore) CreateCharge(ctx context.Context, c billing.Charge) error {
	return ts.parent.createCharge(ctx, ts.tx, c)
}

func (ts *txStore) Charge(ctx context.Context, id billing.ChargeID) (billing.Charge, error) {
	return ts.parent.getCharge(ctx, ts.tx, id)
}

func (ts *txStore) ChargeByKey(ctx context.Context, key billing.ChargeKey) (billing.Charge, error) {
	return ts.parent.chargeByKey(ctx, ts.tx, key)
}

func (ts *txStore) ChargesByApartment(ctx context.Context, apartmentID billing.ApartmentID, billType billing.BillType) ([]billing.Charge, error) {
	if billType == "" {
		query := chargeSelect + " WHERE apartment_id = ? ORDER BY period ASC, bill_type ASC"
		return ts.parent.queryCharges(ctx, ts.tx, query, apartmentID)
	}
	query := chargeSelect + " WHERE apartment_id = ? AND bill_type = ? ORDER BY period ASC"
	return ts.parent.queryCharges(ctx, ts.tx, query, apartmentID, billType)
}

func (ts *txStore) ListCharges(ctx context.Context) ([]billing.Charge, error) {
	query := chargeSelect + " ORDER BY period ASC, bill_type ASC, id ASC"
	return ts.parent.queryCharges(ctx, ts.tx, query)
}

func (ts *txStore) UpdateChargeStatus(ctx context.Context, id billing.ChargeID, status billing.ChargeStatus) error {
	return updateChargeStatus(ctx, ts.tx, id, status)
}

func (ts *txStore) AppendPayment(ctx context.Context, p billing.Payment) error {
	return appendPayment(ctx, ts.tx, p)
}

func (ts *txStore) PaymentsByCharge(ctx context.Context, chargeID billing.ChargeID) ([]billing.Payment, error) {
	return queryPayments(ctx, ts.tx, chargeID)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payments", "charges", "contracts", "ownerships", "apartments", "owners"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *billing.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
