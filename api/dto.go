/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ON THE WIRE:
  Amounts travel as decimal strings ("750.00"), never JSON numbers -
  float64 round-tripping is how billing systems lose cents.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: The domain model these mirror
*/
package api

import (
	"github.com/edificio/billing-engine/billing"
	"github.com/edificio/billing-engine/eligibility"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// OwnerDTO represents an owner in API responses.
type OwnerDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CreateOwnerRequest is the request to register an owner.
type CreateOwnerRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ApartmentDTO represents an apartment in API responses.
type ApartmentDTO struct {
	ID     string `json:"id"`
	Floor  int    `json:"floor"`
	Letter string `json:"letter"`
}

// CreateApartmentRequest is the request to register an apartment.
type CreateApartmentRequest struct {
	ID     string `json:"id"`
	Floor  int    `json:"floor"`
	Letter string `json:"letter"`
}

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID               string            `json:"id"`
	TenantID         string            `json:"tenant_id"`
	ApartmentID      string            `json:"apartment_id"`
	Start            string            `json:"start"`
	End              *string           `json:"end,omitempty"`
	Rent             string            `json:"rent"`
	Responsibilities map[string]string `json:"responsibilities,omitempty"`
	AdjustmentMonths int               `json:"adjustment_months,omitempty"`
}

// CreateContractRequest is the request to register a contract.
type CreateContractRequest struct {
	ID               string            `json:"id,omitempty"`
	TenantID         string            `json:"tenant_id"`
	ApartmentID      string            `json:"apartment_id"`
	Start            string            `json:"start"`
	End              *string           `json:"end,omitempty"`
	Rent             string            `json:"rent"`
	Responsibilities map[string]string `json:"responsibilities,omitempty"`
	AdjustmentMonths int               `json:"adjustment_months,omitempty"`
}

// TerminateContractRequest sets a contract's end date.
type TerminateContractRequest struct {
	End string `json:"end"`
}

// AssignOwnershipRequest records initial ownership of an apartment.
type AssignOwnershipRequest struct {
	OwnerID     string `json:"owner_id"`
	ApartmentID string `json:"apartment_id"`
	From        string `json:"from"`
}

// TransferRequest records a sale.
type TransferRequest struct {
	ApartmentID string `json:"apartment_id"`
	NewOwnerID  string `json:"new_owner_id"`
	Effective   string `json:"effective"`
}

// OwnershipDTO represents one ownership range.
type OwnershipDTO struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	ApartmentID   string  `json:"apartment_id"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

// ChargeDTO represents a charge in API responses. Classification is only
// populated on endpoints that take an as-of date.
type ChargeDTO struct {
	ID             string `json:"id"`
	ApartmentID    string `json:"apartment_id"`
	ContractID     string `json:"contract_id"`
	BillType       string `json:"bill_type"`
	Period         string `json:"period"`
	Amount         string `json:"amount"`
	DueDate        string `json:"due_date"`
	Status         string `json:"status"`
	Adjusted       bool   `json:"adjusted,omitempty"`
	Classification string `json:"classification,omitempty"`
}

// GenerateChargesRequest triggers charge generation for a period.
// Readings maps apartment ID to bill type to decimal amount.
type GenerateChargesRequest struct {
	Period   string                       `json:"period"`
	Readings map[string]map[string]string `json:"readings,omitempty"`
}

// PaymentDTO represents a settlement event.
type PaymentDTO struct {
	ID         string `json:"id"`
	ChargeID   string `json:"charge_id"`
	Amount     string `json:"amount"`
	PaidAt     string `json:"paid_at"`
	Reference  string `json:"reference,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// RecordPaymentRequest records a payment against a charge.
type RecordPaymentRequest struct {
	Amount    string `json:"amount"`
	PaidAt    string `json:"paid_at"`
	Reference string `json:"reference,omitempty"`
}

// EligibilityDTO is the discount eligibility verdict.
type EligibilityDTO struct {
	OwnerID             string     `json:"owner_id"`
	BillType            string     `json:"bill_type"`
	AsOf                string     `json:"as_of"`
	Eligible            bool       `json:"eligible"`
	WorstStatus         string     `json:"worst_status"`
	TriggeringApartment string     `json:"triggering_apartment,omitempty"`
	TriggeringCharge    *ChargeDTO `json:"triggering_charge,omitempty"`
	RestoredAfter       *string    `json:"restored_after,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toChargeDTO(c billing.Charge) ChargeDTO {
	return ChargeDTO{
		ID:          string(c.ID),
		ApartmentID: string(c.ApartmentID),
		ContractID:  string(c.ContractID),
		BillType:    string(c.BillType),
		Period:      c.Period.String(),
		Amount:      c.Amount.String(),
		DueDate:     c.DueDate.String(),
		Status:      string(c.Status),
		Adjusted:    c.Adjusted,
	}
}

func toChargeDTOs(charges []billing.Charge) []ChargeDTO {
	dtos := make([]ChargeDTO, len(charges))
	for i, c := range charges {
		dtos[i] = toChargeDTO(c)
	}
	return dtos
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         string(p.ID),
		ChargeID:   string(p.ChargeID),
		Amount:     p.Amount.String(),
		PaidAt:     p.PaidAt.String(),
		Reference:  p.Reference,
		RecordedAt: p.RecordedAt.String(),
	}
}

func toPaymentDTOs(payments []billing.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toContractDTO(c billing.Contract) ContractDTO {
	dto := ContractDTO{
		ID:               string(c.ID),
		TenantID:         string(c.TenantID),
		ApartmentID:      string(c.ApartmentID),
		Start:            c.Start.String(),
		Rent:             c.Rent.String(),
		AdjustmentMonths: c.AdjustmentMonths,
	}
	if c.End != nil {
		s := c.End.String()
		dto.End = &s
	}
	if len(c.Responsibilities) > 0 {
		dto.Responsibilities = make(map[string]string, len(c.Responsibilities))
		for bt, resp := range c.Responsibilities {
			dto.Responsibilities[string(bt)] = string(resp)
		}
	}
	return dto
}

func toOwnershipDTO(o billing.Ownership) OwnershipDTO {
	dto := OwnershipDTO{
		ID:            o.ID,
		OwnerID:       string(o.OwnerID),
		ApartmentID:   string(o.ApartmentID),
		EffectiveFrom: o.EffectiveFrom.String(),
	}
	if o.EffectiveTo != nil {
		s := o.EffectiveTo.String()
		dto.EffectiveTo = &s
	}
	return dto
}

func toEligibilityDTO(v eligibility.Eligibility) EligibilityDTO {
	dto := EligibilityDTO{
		OwnerID:             string(v.OwnerID),
		BillType:            string(v.BillType),
		AsOf:                v.AsOf.String(),
		Eligible:            v.Eligible,
		WorstStatus:         string(v.WorstStatus),
		TriggeringApartment: string(v.TriggeringApartment),
	}
	if v.TriggeringCharge != nil {
		c := toChargeDTO(*v.TriggeringCharge)
		dto.TriggeringCharge = &c
	}
	if v.RestoredAfter != nil {
		s := v.RestoredAfter.String()
		dto.RestoredAfter = &s
	}
	return dto
}
