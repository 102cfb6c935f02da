/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON lateness-policy definitions into billing.LatenessPolicy
  values. This keeps the municipality's timing rules out of the code - the
  administration can redefine due days and grace windows in JSON, and the
  factory produces the proper Go struct.

WHY JSON?
  - Non-developers can adjust the windows
  - Easy integration with an admin UI
  - Version control for policy definitions
  - Database or config-file storage of policy configs

JSON SCHEMA:
  {
    "id": "municipal-2024",
    "name": "Municipal ordinance 2024",
    "due_day": 10,
    "grace_days": 5,
    "delinquency_days": 30
  }

VALIDATION:
  - due_day must be 1-28 (every month has the due date)
  - grace_days and delinquency_days must be non-negative

USAGE:
  factory := NewPolicyFactory()

  // From JSON string
  policy, err := factory.ParsePolicy(jsonString)

  // From a preset (recommended for tests and scenarios)
  policy, err := factory.ParsePolicy(factory.StandardPolicyJSON("municipal-2024", 10, 5, 30))

  // Use in the system
  detector := billing.NewLatenessDetector(store, policy.Policy)

SEE ALSO:
  - billing/lateness.go: LatenessPolicy definition and classification
  - config/config.go: the same windows sourced from env/file config
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/edificio/billing-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a lateness policy.
type PolicyJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// DueDay is the day of the period month charges fall due (1-28).
	DueDay int `json:"due_day"`

	// GraceDays is the window after the due date during which non-payment
	// is not yet late.
	GraceDays int `json:"grace_days"`

	// DelinquencyDays is the window after grace during which a charge is
	// late; beyond it the charge counts as unpaid.
	DelinquencyDays int `json:"delinquency_days"`
}

// NamedPolicy pairs a parsed policy with its identity for display and
// persistence.
type NamedPolicy struct {
	ID     string
	Name   string
	Policy billing.LatenessPolicy
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON string into a NamedPolicy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (NamedPolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return NamedPolicy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON validates PolicyJSON and converts it to a NamedPolicy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (NamedPolicy, error) {
	if pj.DueDay < 1 || pj.DueDay > 28 {
		return NamedPolicy{}, fmt.Errorf("policy %q: due_day %d outside 1-28", pj.ID, pj.DueDay)
	}
	if pj.GraceDays < 0 {
		return NamedPolicy{}, fmt.Errorf("policy %q: negative grace_days %d", pj.ID, pj.GraceDays)
	}
	if pj.DelinquencyDays < 0 {
		return NamedPolicy{}, fmt.Errorf("policy %q: negative delinquency_days %d", pj.ID, pj.DelinquencyDays)
	}

	return NamedPolicy{
		ID:   pj.ID,
		Name: pj.Name,
		Policy: billing.LatenessPolicy{
			DueDay:          pj.DueDay,
			GraceDays:       pj.GraceDays,
			DelinquencyDays: pj.DelinquencyDays,
		},
	}, nil
}

// ToJSON converts a NamedPolicy back to its JSON representation.
func (f *PolicyFactory) ToJSON(np NamedPolicy) PolicyJSON {
	return PolicyJSON{
		ID:              np.ID,
		Name:            np.Name,
		DueDay:          np.Policy.DueDay,
		GraceDays:       np.Policy.GraceDays,
		DelinquencyDays: np.Policy.DelinquencyDays,
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// StandardPolicyJSON builds the JSON for a policy with the given windows.
func (f *PolicyFactory) StandardPolicyJSON(id string, dueDay, graceDays, delinquencyDays int) string {
	pj := PolicyJSON{
		ID:              id,
		Name:            id,
		DueDay:          dueDay,
		GraceDays:       graceDays,
		DelinquencyDays: delinquencyDays,
	}
	b, _ := json.Marshal(pj)
	return string(b)
}
