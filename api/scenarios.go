/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates owners, apartments,
	contracts, charges, and payments that demonstrate specific features.

AVAILABLE SCENARIOS:

	small-building:   Two owners, three apartments, one billed period
	late-water-bill:  One overdue water charge revoking the water discount
	portfolio-owner:  One owner, several apartments, mixed payment states

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create owners and apartments
 3. Assign ownership and register contracts
 4. Generate a period's charges
 5. Optionally record payments to set up the desired states

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "late-water-bill"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler context and helpers
  - eligibility/engine.go: What the delinquent scenarios demonstrate
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edificio/billing-engine/billing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-building",
		Name:        "Small Building",
		Description: "Two owners, three apartments, one fully billed period",
	},
	{
		ID:          "late-water-bill",
		Name:        "Late Water Bill",
		Description: "One overdue water charge revoking the owner's water discount complex-wide",
	},
	{
		ID:          "portfolio-owner",
		Name:        "Portfolio Owner",
		Description: "One owner holding several apartments with mixed payment states",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "small-building":
		err = h.loadSmallBuildingScenario(ctx)
	case "late-water-bill":
		err = h.loadLateWaterBillScenario(ctx)
	case "portfolio-owner":
		err = h.loadPortfolioOwnerScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data (dev only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	resetter, ok := h.Store.(Resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	h.currentScenario = ""
	return resetter.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedBuilding creates the shared directory: two owners, three apartments,
// ownership from January 2024, contracts starting the same month.
func (h *Handler) seedBuilding(ctx context.Context) error {
	owners := []billing.Owner{
		{ID: "owner-garcia", Name: "M. Garcia", Email: "garcia@example.com"},
		{ID: "owner-rossi", Name: "L. Rossi", Email: "rossi@example.com"},
	}
	for _, o := range owners {
		if err := h.Store.SaveOwner(ctx, o); err != nil {
			return err
		}
	}

	apartments := []billing.Apartment{
		{ID: "apt-1a", Floor: 1, Letter: "A"},
		{ID: "apt-1b", Floor: 1, Letter: "B"},
		{ID: "apt-2a", Floor: 2, Letter: "A"},
	}
	for _, a := range apartments {
		if err := h.Store.SaveApartment(ctx, a); err != nil {
			return err
		}
	}

	from := mustDate("2024-01-01")
	holdings := map[billing.ApartmentID]billing.OwnerID{
		"apt-1a": "owner-garcia",
		"apt-1b": "owner-garcia",
		"apt-2a": "owner-rossi",
	}
	for apt, owner := range holdings {
		if _, err := h.Owners.Assign(ctx, owner, apt, from); err != nil {
			return err
		}
	}

	rents := map[billing.ApartmentID]string{
		"apt-1a": "750.00",
		"apt-1b": "820.00",
		"apt-2a": "900.00",
	}
	for apt, rent := range rents {
		contract := billing.Contract{
			TenantID:         billing.TenantID("tenant-" + string(apt)),
			ApartmentID:      apt,
			Start:            from,
			Rent:             billing.MustParseMoney(rent),
			AdjustmentMonths: 12,
		}
		if _, err := h.Contracts.Register(ctx, contract); err != nil {
			return err
		}
	}
	return nil
}

// generateMarch bills March 2024 for every apartment with flat utility
// readings, returning the charges keyed by (apartment, bill type).
func (h *Handler) generateMarch(ctx context.Context) (map[billing.ChargeKey]billing.Charge, error) {
	period, _ := billing.ParsePeriod("2024-03")

	readings := make(map[billing.ApartmentID]billing.MeterReadings)
	for _, apt := range []billing.ApartmentID{"apt-1a", "apt-1b", "apt-2a"} {
		readings[apt] = billing.MeterReadings{
			billing.BillMunicipal: billing.MustParseMoney("120.00"),
			billing.BillWater:     billing.MustParseMoney("45.50"),
		}
	}

	contracts, err := h.Contracts.ActiveContracts(ctx, period.Start())
	if err != nil {
		return nil, err
	}
	charges, err := h.Scheduler.GenerateForPeriod(ctx, contracts, period, readings)
	if err != nil {
		return nil, err
	}

	byKey := make(map[billing.ChargeKey]billing.Charge, len(charges))
	for _, c := range charges {
		byKey[c.Key()] = c
	}
	return byKey, nil
}

func (h *Handler) loadSmallBuildingScenario(ctx context.Context) error {
	if err := h.seedBuilding(ctx); err != nil {
		return err
	}
	charges, err := h.generateMarch(ctx)
	if err != nil {
		return err
	}

	// Everyone pays on time.
	paidAt := mustDate("2024-03-08")
	for _, c := range charges {
		if _, err := h.Ledger.Record(ctx, c.ID, c.Amount, paidAt, ""); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadLateWaterBillScenario(ctx context.Context) error {
	if err := h.seedBuilding(ctx); err != nil {
		return err
	}
	charges, err := h.generateMarch(ctx)
	if err != nil {
		return err
	}

	// Garcia pays everything except the water bill on apt-1a; that one
	// charge revokes the water discount on apt-1b too.
	paidAt := mustDate("2024-03-08")
	period, _ := billing.ParsePeriod("2024-03")
	skipped := billing.ChargeKey{ApartmentID: "apt-1a", BillType: billing.BillWater, Period: period}
	for key, c := range charges {
		if key == skipped {
			continue
		}
		if _, err := h.Ledger.Record(ctx, c.ID, c.Amount, paidAt, ""); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadPortfolioOwnerScenario(ctx context.Context) error {
	if err := h.seedBuilding(ctx); err != nil {
		return err
	}

	// Garcia also buys apt-2a from Rossi before billing starts.
	if _, err := h.Owners.Transfer(ctx, "apt-2a", "owner-garcia", mustDate("2024-02-01")); err != nil {
		return err
	}

	charges, err := h.generateMarch(ctx)
	if err != nil {
		return err
	}

	// Partial payment on one municipal charge, full payments elsewhere.
	period, _ := billing.ParsePeriod("2024-03")
	partial := billing.ChargeKey{ApartmentID: "apt-2a", BillType: billing.BillMunicipal, Period: period}
	paidAt := mustDate("2024-03-08")
	for key, c := range charges {
		amount := c.Amount
		if key == partial {
			amount = billing.MustParseMoney("60.00")
		}
		if _, err := h.Ledger.Record(ctx, c.ID, amount, paidAt, ""); err != nil {
			return err
		}
	}
	return nil
}

func mustDate(s string) billing.Date {
	d, err := billing.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
