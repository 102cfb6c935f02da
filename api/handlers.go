/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing ledger and eligibility engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Owners:
    GET    /api/owners                       List owners
    POST   /api/owners                       Register owner
    GET    /api/owners/{id}                  Owner details
    GET    /api/owners/{id}/apartments       Apartments held as of a date
    GET    /api/owners/{id}/eligibility      Discount eligibility verdict

  Apartments:
    GET    /api/apartments                   List apartments
    POST   /api/apartments                   Register apartment
    GET    /api/apartments/{id}/charges      Charge history

  Contracts:
    GET    /api/contracts                    List contracts
    POST   /api/contracts                    Register contract
    POST   /api/contracts/{id}/terminate     Set end date

  Charges & payments:
    GET    /api/charges                      All charges (accounting view)
    GET    /api/charges/{id}                 Charge with classification
    GET    /api/charges/{id}/payments        Settlement history
    POST   /api/charges/{id}/payments        Record payment
    POST   /api/charges/{id}/writeoff        Forgive remaining balance

  Admin:
    POST   /api/admin/ownerships             Assign initial ownership
    POST   /api/admin/transfers              Record a sale
    POST   /api/admin/generate               Generate a period's charges

PRINCIPALS:
  The caller identifies itself with X-Principal-ID and X-Principal-Role
  headers (administrator, accountant, resident). The API trusts the
  headers - authentication lives in the gateway in front of this service.
  Residents only see apartments their active contract covers.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Role does not permit the operation
  - 404: Resource not found
  - 409: Conflict (duplicate charge, duplicate payment, settled charge)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edificio/billing-engine/billing"
	"github.com/edificio/billing-engine/eligibility"
)

// =============================================================================
// PRINCIPALS
// =============================================================================

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleAccountant    Role = "accountant"
	RoleResident      Role = "resident"
)

// Principal identifies the caller. Supplied via headers; never
// authenticated here.
type Principal struct {
	ID   string
	Role Role
}

func principalFrom(r *http.Request) Principal {
	return Principal{
		ID:   r.Header.Get("X-Principal-ID"),
		Role: Role(r.Header.Get("X-Principal-Role")),
	}
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter is implemented by stores that can wipe themselves (dev/demo).
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     billing.TxStore
	Ledger    *billing.PaymentLedger
	Scheduler *billing.ChargeScheduler
	Detector  *billing.LatenessDetector
	Engine    *eligibility.Engine
	Contracts *billing.ContractRegistry
	Owners    *billing.OwnerRegistry
	Log       zerolog.Logger

	currentScenario string
}

// NewHandler wires the domain components over one store.
func NewHandler(store billing.TxStore, policy billing.LatenessPolicy, log zerolog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Ledger:    billing.NewPaymentLedger(store),
		Scheduler: billing.NewChargeScheduler(store, policy),
		Detector:  billing.NewLatenessDetector(store, policy),
		Engine:    eligibility.NewEngine(store, policy),
		Contracts: billing.NewContractRegistry(store),
		Owners:    billing.NewOwnerRegistry(store),
		Log:       log,
	}
}

// require rejects the request unless the principal holds one of the roles.
func (h *Handler) require(w http.ResponseWriter, r *http.Request, roles ...Role) (Principal, bool) {
	p := principalFrom(r)
	for _, role := range roles {
		if p.Role == role {
			return p, true
		}
	}
	writeError(w, http.StatusForbidden, "Role does not permit this operation", nil)
	return p, false
}

// =============================================================================
// OWNER HANDLERS
// =============================================================================

// ListOwners returns all owners.
func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	owners, err := h.Store.ListOwners(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list owners", err)
		return
	}

	dtos := make([]OwnerDTO, len(owners))
	for i, o := range owners {
		dtos[i] = OwnerDTO{ID: string(o.ID), Name: o.Name, Email: o.Email}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOwner registers an owner.
func (h *Handler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	var req CreateOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	owner := billing.Owner{ID: billing.OwnerID(req.ID), Name: req.Name, Email: req.Email}
	if err := h.Store.SaveOwner(r.Context(), owner); err != nil {
		writeDomainError(w, "Failed to create owner", err)
		return
	}
	writeJSON(w, http.StatusCreated, OwnerDTO{ID: req.ID, Name: req.Name, Email: req.Email})
}

// GetOwner returns a single owner.
func (h *Handler) GetOwner(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	owner, err := h.Store.Owner(r.Context(), billing.OwnerID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get owner", err)
		return
	}
	writeJSON(w, http.StatusOK, OwnerDTO{ID: string(owner.ID), Name: owner.Name, Email: owner.Email})
}

// GetOwnerApartments returns the apartments an owner holds as of a date.
func (h *Handler) GetOwnerApartments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	asOf, err := queryDate(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	held, err := h.Owners.Apartments(r.Context(), billing.OwnerID(chi.URLParam(r, "id")), asOf)
	if err != nil {
		writeDomainError(w, "Failed to list apartments", err)
		return
	}

	dtos := make([]OwnershipDTO, len(held))
	for i, o := range held {
		dtos[i] = toOwnershipDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOwnerEligibility answers the discount question for an owner. With
// bill_type set, one verdict; without, one per utility bill type.
func (h *Handler) GetOwnerEligibility(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	ownerID := chi.URLParam(r, "id")
	if p.Role == RoleResident && p.ID != ownerID {
		writeError(w, http.StatusForbidden, "Residents may only query their own eligibility", nil)
		return
	}
	if p.Role != RoleResident {
		if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
			return
		}
	}

	asOf, err := queryDate(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	if bt := r.URL.Query().Get("bill_type"); bt != "" {
		verdict, err := h.Engine.Eligibility(r.Context(), billing.OwnerID(ownerID), billing.BillType(bt), asOf)
		if err != nil {
			writeDomainError(w, "Failed to compute eligibility", err)
			return
		}
		writeJSON(w, http.StatusOK, toEligibilityDTO(verdict))
		return
	}

	verdicts, err := h.Engine.EligibilityAll(r.Context(), billing.OwnerID(ownerID), asOf)
	if err != nil {
		writeDomainError(w, "Failed to compute eligibility", err)
		return
	}
	dtos := make([]EligibilityDTO, len(verdicts))
	for i, v := range verdicts {
		dtos[i] = toEligibilityDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// APARTMENT HANDLERS
// =============================================================================

// ListApartments returns all apartments.
func (h *Handler) ListApartments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	apartments, err := h.Store.ListApartments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list apartments", err)
		return
	}

	dtos := make([]ApartmentDTO, len(apartments))
	for i, a := range apartments {
		dtos[i] = ApartmentDTO{ID: string(a.ID), Floor: a.Floor, Letter: a.Letter}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateApartment registers an apartment.
func (h *Handler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	var req CreateApartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || len(req.Letter) != 1 {
		writeError(w, http.StatusBadRequest, "id and a single-character letter are required", nil)
		return
	}

	apt := billing.Apartment{ID: billing.ApartmentID(req.ID), Floor: req.Floor, Letter: req.Letter}
	if err := h.Store.SaveApartment(r.Context(), apt); err != nil {
		writeDomainError(w, "Failed to create apartment", err)
		return
	}
	writeJSON(w, http.StatusCreated, ApartmentDTO{ID: req.ID, Floor: req.Floor, Letter: req.Letter})
}

// GetApartmentCharges returns an apartment's charges, optionally filtered
// by bill type. Residents only see the apartment their contract covers.
func (h *Handler) GetApartmentCharges(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	apartmentID := billing.ApartmentID(chi.URLParam(r, "id"))

	switch p.Role {
	case RoleAdministrator, RoleAccountant:
	case RoleResident:
		contract, err := h.Contracts.ActiveContract(r.Context(), apartmentID, billing.Today())
		if err != nil || string(contract.TenantID) != p.ID {
			writeError(w, http.StatusForbidden, "Residents may only view their own apartment", nil)
			return
		}
	default:
		writeError(w, http.StatusForbidden, "Role does not permit this operation", nil)
		return
	}

	billType := billing.BillType(r.URL.Query().Get("bill_type"))
	if billType != "" && !billType.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown bill_type", nil)
		return
	}

	charges, err := h.Store.ChargesByApartment(r.Context(), apartmentID, billType)
	if err != nil {
		writeDomainError(w, "Failed to list charges", err)
		return
	}
	writeJSON(w, http.StatusOK, toChargeDTOs(charges))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns all contracts.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContract registers a contract.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := billing.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}
	rent, err := billing.ParseMoney(req.Rent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rent amount", err)
		return
	}

	contract := billing.Contract{
		ID:               billing.ContractID(req.ID),
		TenantID:         billing.TenantID(req.TenantID),
		ApartmentID:      billing.ApartmentID(req.ApartmentID),
		Start:            start,
		Rent:             rent,
		AdjustmentMonths: req.AdjustmentMonths,
	}
	if req.End != nil {
		end, err := billing.ParseDate(*req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
			return
		}
		contract.End = &end
	}
	if len(req.Responsibilities) > 0 {
		contract.Responsibilities = make(map[billing.BillType]billing.BillResponsibility, len(req.Responsibilities))
		for bt, resp := range req.Responsibilities {
			contract.Responsibilities[billing.BillType(bt)] = billing.BillResponsibility(resp)
		}
	}

	registered, err := h.Contracts.Register(r.Context(), contract)
	if err != nil {
		writeDomainError(w, "Failed to register contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(registered))
}

// GetContract returns a single contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	contract, err := h.Store.Contract(r.Context(), billing.ContractID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(contract))
}

// TerminateContract sets a contract's end date.
func (h *Handler) TerminateContract(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	var req TerminateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	end, err := billing.ParseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
		return
	}

	contract, err := h.Contracts.Terminate(r.Context(), billing.ContractID(chi.URLParam(r, "id")), end)
	if err != nil {
		writeDomainError(w, "Failed to terminate contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(contract))
}

// =============================================================================
// OWNERSHIP ADMIN HANDLERS
// =============================================================================

// AssignOwnership records initial ownership of an apartment.
func (h *Handler) AssignOwnership(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	var req AssignOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	from, err := billing.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}

	own, err := h.Owners.Assign(r.Context(), billing.OwnerID(req.OwnerID), billing.ApartmentID(req.ApartmentID), from)
	if err != nil {
		writeDomainError(w, "Failed to assign ownership", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOwnershipDTO(own))
}

// TransferOwnership records a sale.
func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	effective, err := billing.ParseDate(req.Effective)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective date (use YYYY-MM-DD)", err)
		return
	}

	own, err := h.Owners.Transfer(r.Context(), billing.ApartmentID(req.ApartmentID), billing.OwnerID(req.NewOwnerID), effective)
	if err != nil {
		writeDomainError(w, "Failed to transfer ownership", err)
		return
	}

	h.Log.Info().
		Str("apartment", req.ApartmentID).
		Str("new_owner", req.NewOwnerID).
		Str("effective", req.Effective).
		Msg("ownership transferred")
	writeJSON(w, http.StatusCreated, toOwnershipDTO(own))
}

// =============================================================================
// CHARGE & PAYMENT HANDLERS
// =============================================================================

// GenerateCharges generates a billing period's charges for every active
// contract. Idempotent: re-invocation returns the existing charges.
func (h *Handler) GenerateCharges(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	var req GenerateChargesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := billing.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	readings := make(map[billing.ApartmentID]billing.MeterReadings, len(req.Readings))
	for aptID, amounts := range req.Readings {
		mr := make(billing.MeterReadings, len(amounts))
		for bt, amount := range amounts {
			m, err := billing.ParseMoney(amount)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid reading amount for "+aptID, err)
				return
			}
			mr[billing.BillType(bt)] = m
		}
		readings[billing.ApartmentID(aptID)] = mr
	}

	contracts, err := h.Contracts.ActiveContracts(r.Context(), period.Start())
	if err != nil {
		writeDomainError(w, "Failed to load contracts", err)
		return
	}

	charges, err := h.Scheduler.GenerateForPeriod(r.Context(), contracts, period, readings)
	if err != nil {
		writeDomainError(w, "Failed to generate charges", err)
		return
	}

	h.Log.Info().
		Str("period", period.String()).
		Int("charges", len(charges)).
		Msg("period charges generated")
	writeJSON(w, http.StatusCreated, toChargeDTOs(charges))
}

// ListCharges returns every charge (accounting view).
func (h *Handler) ListCharges(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	charges, err := h.Store.ListCharges(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list charges", err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := charges[:0]
		for _, c := range charges {
			if string(c.Status) == status {
				filtered = append(filtered, c)
			}
		}
		charges = filtered
	}
	writeJSON(w, http.StatusOK, toChargeDTOs(charges))
}

// GetCharge returns one charge with its classification as of a date.
func (h *Handler) GetCharge(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	asOf, err := queryDate(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	charge, err := h.Store.Charge(r.Context(), billing.ChargeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get charge", err)
		return
	}

	classification, err := h.Detector.ClassifyLoaded(r.Context(), charge, asOf)
	if err != nil {
		writeDomainError(w, "Failed to classify charge", err)
		return
	}

	dto := toChargeDTO(charge)
	dto.Classification = string(classification)
	writeJSON(w, http.StatusOK, dto)
}

// GetChargePayments returns the charge's settlement history.
func (h *Handler) GetChargePayments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	payments, err := h.Ledger.Payments(r.Context(), billing.ChargeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// RecordPayment appends a payment against a charge.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator, RoleAccountant); !ok {
		return
	}

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	paidAt, err := billing.ParseDate(req.PaidAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paid_at date (use YYYY-MM-DD)", err)
		return
	}
	amount, err := billing.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment amount", err)
		return
	}

	chargeID := billing.ChargeID(chi.URLParam(r, "id"))
	payment, err := h.Ledger.Record(r.Context(), chargeID, amount, paidAt, req.Reference)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}

	h.Log.Info().
		Str("charge", string(chargeID)).
		Str("amount", req.Amount).
		Str("paid_at", req.PaidAt).
		Msg("payment recorded")
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// WriteOffCharge forgives a charge's remaining balance.
func (h *Handler) WriteOffCharge(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.require(w, r, RoleAdministrator); !ok {
		return
	}

	chargeID := billing.ChargeID(chi.URLParam(r, "id"))
	charge, err := h.Ledger.WriteOff(r.Context(), chargeID)
	if err != nil {
		writeDomainError(w, "Failed to write off charge", err)
		return
	}

	h.Log.Info().Str("charge", string(chargeID)).Msg("charge written off")
	writeJSON(w, http.StatusOK, toChargeDTO(charge))
}

// =============================================================================
// HELPERS
// =============================================================================

// queryDate parses a date query parameter, defaulting to today.
func queryDate(r *http.Request, key string) (billing.Date, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return billing.Today(), nil
	}
	return billing.ParseDate(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, billing.ErrSchedulingConflict),
		errors.Is(err, billing.ErrDuplicatePayment),
		errors.Is(err, billing.ErrAlreadySettled),
		errors.Is(err, billing.ErrContractOverlap),
		errors.Is(err, billing.ErrContractTerminated),
		errors.Is(err, billing.ErrDuplicateUnit):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
