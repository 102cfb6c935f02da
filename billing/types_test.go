package billing

import (
	"errors"
	"testing"
)

func TestParseMoney_Valid(t *testing.T) {
	// GIVEN: Well-formed decimal strings
	// WHEN: Parsing
	// THEN: The exact amount comes back

	for _, tc := range []struct {
		in   string
		want string
	}{
		{"45.50", "45.50"},
		{"0", "0.00"},
		{"750", "750.00"},
		{"-5.25", "-5.25"}, // sign rules are enforced at the ledger, not here
	} {
		m, err := ParseMoney(tc.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
			continue
		}
		if m.String() != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.in, tc.want, m)
		}
	}
}

func TestParseMoney_RejectsMalformed(t *testing.T) {
	// GIVEN: Non-numeric amount strings
	// WHEN: Parsing
	// THEN: InvalidAmount - never a silent zero

	for _, in := range []string{"", "abc", "12,50", "45.50.1", "$45"} {
		if _, err := ParseMoney(in); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("%q: expected invalid amount, got %v", in, err)
		}
	}
}
