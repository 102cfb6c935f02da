/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Role enforcement on every surface
- The register -> generate -> pay -> eligibility flow over HTTP
- Domain error to HTTP status mapping
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edificio/billing-engine/billing"
	memstore "github.com/edificio/billing-engine/billing/store"
)

func newTestRouter(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store := memstore.NewTxMemory()
	policy := billing.LatenessPolicy{DueDay: 10, GraceDays: 5, DelinquencyDays: 30}
	h := NewHandler(store, policy, zerolog.Nop())
	return h, NewRouter(h)
}

// do issues a request with principal headers and returns the recorder.
func do(t *testing.T, router http.Handler, method, path string, body any, role Role, principalID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		req.Header.Set("X-Principal-Role", string(role))
		req.Header.Set("X-Principal-ID", principalID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func asAdmin(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return do(t, router, method, path, body, RoleAdministrator, "admin-1")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

// seedBuildingAPI drives the admin endpoints to set up one owner, one
// apartment, its contract and ownership.
func seedBuildingAPI(t *testing.T, router http.Handler) {
	t.Helper()

	rec := asAdmin(t, router, "POST", "/api/owners", CreateOwnerRequest{ID: "owner-1", Name: "M. Garcia"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = asAdmin(t, router, "POST", "/api/apartments", CreateApartmentRequest{ID: "apt-1a", Floor: 1, Letter: "A"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = asAdmin(t, router, "POST", "/api/admin/ownerships", AssignOwnershipRequest{
		OwnerID: "owner-1", ApartmentID: "apt-1a", From: "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = asAdmin(t, router, "POST", "/api/contracts", CreateContractRequest{
		TenantID: "tenant-1", ApartmentID: "apt-1a", Start: "2024-01-01", Rent: "750.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func generateMarchAPI(t *testing.T, router http.Handler) []ChargeDTO {
	t.Helper()
	rec := asAdmin(t, router, "POST", "/api/admin/generate", GenerateChargesRequest{
		Period: "2024-03",
		Readings: map[string]map[string]string{
			"apt-1a": {"water": "45.50", "municipal": "120.00"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[[]ChargeDTO](t, rec)
}

func chargeByType(t *testing.T, charges []ChargeDTO, billType string) ChargeDTO {
	t.Helper()
	for _, c := range charges {
		if c.BillType == billType {
			return c
		}
	}
	t.Fatalf("no %s charge in %+v", billType, charges)
	return ChargeDTO{}
}

// =============================================================================
// ROLE ENFORCEMENT TESTS
// =============================================================================

func TestRoles_AnonymousAndResidentRejected(t *testing.T) {
	// GIVEN: A running API
	// WHEN: Calling staff endpoints without a role, or as a resident
	// THEN: 403 everywhere

	_, router := newTestRouter(t)

	staffOnly := []struct {
		method, path string
	}{
		{"GET", "/api/owners"},
		{"GET", "/api/apartments"},
		{"GET", "/api/contracts"},
		{"GET", "/api/charges"},
		{"POST", "/api/admin/generate"},
	}
	for _, e := range staffOnly {
		rec := do(t, router, e.method, e.path, nil, "", "")
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s anonymous", e.method, e.path)

		rec = do(t, router, e.method, e.path, nil, RoleResident, "tenant-1")
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s resident", e.method, e.path)
	}
}

func TestRoles_AccountantCannotAdministrate(t *testing.T) {
	// GIVEN: An accountant principal
	// WHEN: Reading lists and attempting admin writes
	// THEN: Reads allowed, writes 403

	_, router := newTestRouter(t)

	rec := do(t, router, "GET", "/api/owners", nil, RoleAccountant, "acct-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, "POST", "/api/owners", CreateOwnerRequest{ID: "o", Name: "N"}, RoleAccountant, "acct-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, "POST", "/api/admin/generate", GenerateChargesRequest{Period: "2024-03"}, RoleAccountant, "acct-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoles_ResidentApartmentAccess(t *testing.T) {
	// GIVEN: A building where tenant-1 rents apt-1a
	// WHEN: Residents request apartment charges
	// THEN: Only the tenant of record gets through

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)
	generateMarchAPI(t, router)

	rec := do(t, router, "GET", "/api/apartments/apt-1a/charges", nil, RoleResident, "tenant-1")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	charges := decode[[]ChargeDTO](t, rec)
	assert.Len(t, charges, 3)

	rec = do(t, router, "GET", "/api/apartments/apt-1a/charges", nil, RoleResident, "tenant-999")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoles_ResidentEligibilitySelfOnly(t *testing.T) {
	// GIVEN: Two owners
	// WHEN: A resident queries eligibility
	// THEN: Own verdict allowed, someone else's is 403

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)

	rec := do(t, router, "GET", "/api/owners/owner-1/eligibility?as_of=2024-04-01", nil, RoleResident, "owner-1")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, "GET", "/api/owners/owner-1/eligibility", nil, RoleResident, "owner-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// BILLING FLOW TESTS
// =============================================================================

func TestFlow_GenerateIsIdempotentOverHTTP(t *testing.T) {
	// GIVEN: March already generated
	// WHEN: Posting the same generation again
	// THEN: Same charge IDs, still 201, no duplicates

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)

	first := generateMarchAPI(t, router)
	second := generateMarchAPI(t, router)

	require.Len(t, first, 3)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestFlow_PaymentLifecycle(t *testing.T) {
	// GIVEN: A generated water charge of 45.50
	// WHEN: Paying in part, then in full, then once more
	// THEN: 201, 201, then 409 on the settled charge

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)
	water := chargeByType(t, generateMarchAPI(t, router), "water")

	payURL := fmt.Sprintf("/api/charges/%s/payments", water.ID)

	rec := do(t, router, "POST", payURL, RecordPaymentRequest{Amount: "20.00", PaidAt: "2024-03-05"}, RoleAccountant, "acct-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, "POST", payURL, RecordPaymentRequest{Amount: "25.50", PaidAt: "2024-03-08"}, RoleAccountant, "acct-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, "POST", payURL, RecordPaymentRequest{Amount: "1.00", PaidAt: "2024-03-09"}, RoleAccountant, "acct-1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, "GET", payURL, nil, RoleAccountant, "acct-1")
	require.Equal(t, http.StatusOK, rec.Code)
	payments := decode[[]PaymentDTO](t, rec)
	assert.Len(t, payments, 2)

	rec = do(t, router, "GET", "/api/charges/"+water.ID, nil, RoleAccountant, "acct-1")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ChargeDTO](t, rec)
	assert.Equal(t, "paid", got.Status)
}

func TestFlow_ErrorStatusMapping(t *testing.T) {
	// GIVEN: A seeded building
	// WHEN: Sending requests that hit each error class
	// THEN: 400 for bad input, 404 for unknown, 409 for conflicts

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)
	water := chargeByType(t, generateMarchAPI(t, router), "water")

	// Overpayment -> 400
	rec := asAdmin(t, router, "POST", fmt.Sprintf("/api/charges/%s/payments", water.ID),
		RecordPaymentRequest{Amount: "100.00", PaidAt: "2024-03-05"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// Unknown charge -> 404
	rec = asAdmin(t, router, "POST", "/api/charges/no-such/payments",
		RecordPaymentRequest{Amount: "1.00", PaidAt: "2024-03-05"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown owner -> 404
	rec = asAdmin(t, router, "GET", "/api/owners/owner-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Duplicate bank reference -> 409
	pay := RecordPaymentRequest{Amount: "5.00", PaidAt: "2024-03-05", Reference: "bk-1"}
	rec = asAdmin(t, router, "POST", fmt.Sprintf("/api/charges/%s/payments", water.ID), pay)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = asAdmin(t, router, "POST", fmt.Sprintf("/api/charges/%s/payments", water.ID), pay)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Overlapping contract -> 409
	rec = asAdmin(t, router, "POST", "/api/contracts", CreateContractRequest{
		TenantID: "tenant-2", ApartmentID: "apt-1a", Start: "2024-06-01", Rent: "800.00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Duplicate unit (floor, letter) -> 409
	rec = asAdmin(t, router, "POST", "/api/apartments", CreateApartmentRequest{ID: "apt-dup", Floor: 1, Letter: "A"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Malformed period -> 400
	rec = asAdmin(t, router, "POST", "/api/admin/generate", GenerateChargesRequest{Period: "March 2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Non-utility eligibility query -> 400
	rec = asAdmin(t, router, "GET", "/api/owners/owner-1/eligibility?bill_type=rent", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlow_ChargeClassificationAsOf(t *testing.T) {
	// GIVEN: An unpaid March charge, due March 10
	// WHEN: Fetching it with different as-of dates
	// THEN: The classification reflects each date

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)
	water := chargeByType(t, generateMarchAPI(t, router), "water")

	cases := []struct {
		asOf string
		want string
	}{
		{"2024-03-05", "on_time"},
		{"2024-03-12", "grace_period"},
		{"2024-03-20", "late"},
		{"2024-05-01", "unpaid"},
	}
	for _, tc := range cases {
		rec := asAdmin(t, router, "GET", fmt.Sprintf("/api/charges/%s?as_of=%s", water.ID, tc.asOf), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[ChargeDTO](t, rec)
		assert.Equal(t, tc.want, got.Classification, "as of %s", tc.asOf)
	}
}

func TestFlow_EligibilityOverHTTP(t *testing.T) {
	// GIVEN: An owner with one late water charge
	// WHEN: Querying eligibility before and after settling it
	// THEN: Ineligible with the trigger named, then eligible again

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)
	water := chargeByType(t, generateMarchAPI(t, router), "water")

	rec := asAdmin(t, router, "GET", "/api/owners/owner-1/eligibility?bill_type=water&as_of=2024-04-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	verdict := decode[EligibilityDTO](t, rec)
	assert.False(t, verdict.Eligible)
	assert.Equal(t, "late", verdict.WorstStatus)
	require.NotNil(t, verdict.TriggeringCharge)
	assert.Equal(t, water.ID, verdict.TriggeringCharge.ID)
	assert.Nil(t, verdict.RestoredAfter)

	rec = asAdmin(t, router, "POST", fmt.Sprintf("/api/charges/%s/payments", water.ID),
		RecordPaymentRequest{Amount: "45.50", PaidAt: "2024-04-20"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = asAdmin(t, router, "GET", "/api/owners/owner-1/eligibility?bill_type=water&as_of=2024-04-21", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	verdict = decode[EligibilityDTO](t, rec)
	assert.True(t, verdict.Eligible)

	// Without bill_type the endpoint answers per utility type: water and
	// municipal went unpaid, provincial was never billed.
	rec = asAdmin(t, router, "GET", "/api/owners/owner-1/eligibility?as_of=2024-04-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	verdicts := decode[[]EligibilityDTO](t, rec)
	assert.Len(t, verdicts, len(billing.UtilityBillTypes))
	for _, v := range verdicts {
		wantEligible := v.BillType == "provincial"
		assert.Equal(t, wantEligible, v.Eligible, "bill type %s", v.BillType)
	}
}

func TestFlow_MalformedMoneyRejected(t *testing.T) {
	// GIVEN: A seeded building
	// WHEN: Sending non-numeric amounts on every money-bearing endpoint
	// THEN: 400 each time - nothing is ever booked at $0

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)

	rec := asAdmin(t, router, "POST", "/api/contracts", CreateContractRequest{
		TenantID: "tenant-2", ApartmentID: "apt-1a", Start: "2026-01-01", Rent: "abc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = asAdmin(t, router, "POST", "/api/admin/generate", GenerateChargesRequest{
		Period:   "2024-03",
		Readings: map[string]map[string]string{"apt-1a": {"water": "forty"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	water := chargeByType(t, generateMarchAPI(t, router), "water")
	rec = asAdmin(t, router, "POST", fmt.Sprintf("/api/charges/%s/payments", water.ID),
		RecordPaymentRequest{Amount: "12,50", PaidAt: "2024-03-05"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// The rejected reading must not have left a $0 water charge behind.
	rec = asAdmin(t, router, "GET", "/api/charges/"+water.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "45.50", decode[ChargeDTO](t, rec).Amount)
}

func TestFlow_WriteOffOverHTTP(t *testing.T) {
	// GIVEN: An unpaid charge
	// WHEN: The administrator writes it off
	// THEN: 200 with written_off; accountants may not write off

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)
	water := chargeByType(t, generateMarchAPI(t, router), "water")

	rec := do(t, router, "POST", fmt.Sprintf("/api/charges/%s/writeoff", water.ID), nil, RoleAccountant, "acct-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = asAdmin(t, router, "POST", fmt.Sprintf("/api/charges/%s/writeoff", water.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[ChargeDTO](t, rec)
	assert.Equal(t, "written_off", got.Status)
}

func TestFlow_TransferChangesPortfolio(t *testing.T) {
	// GIVEN: owner-1 holding apt-1a
	// WHEN: Transferring to owner-2 effective 2024-06-01
	// THEN: As-of portfolio queries split on the transfer date

	_, router := newTestRouter(t)
	seedBuildingAPI(t, router)

	rec := asAdmin(t, router, "POST", "/api/owners", CreateOwnerRequest{ID: "owner-2", Name: "L. Rossi"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = asAdmin(t, router, "POST", "/api/admin/transfers", TransferRequest{
		ApartmentID: "apt-1a", NewOwnerID: "owner-2", Effective: "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = asAdmin(t, router, "GET", "/api/owners/owner-1/apartments?as_of=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]OwnershipDTO](t, rec), 1)

	rec = asAdmin(t, router, "GET", "/api/owners/owner-1/apartments?as_of=2024-07-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]OwnershipDTO](t, rec), 0)

	rec = asAdmin(t, router, "GET", "/api/owners/owner-2/apartments?as_of=2024-07-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]OwnershipDTO](t, rec), 1)
}
