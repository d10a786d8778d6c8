package extraction

import (
	"testing"

	"github.com/nomisafe/nomisafe-backend/internal/types"
)

func TestParseValidityVerdict(t *testing.T) {
	cases := []struct {
		name       string
		input      string
		wantValid  bool
		wantReason string
	}{
		{name: "valid", input: "VALID", wantValid: true},
		{name: "valid lowercase with trailing text", input: "valid - life insurance policy", wantValid: true},
		{name: "invalid with reason", input: "INVALID: this is a bank statement", wantValid: false, wantReason: "this is a bank statement"},
		{name: "invalid without reason", input: "INVALID", wantValid: false, wantReason: "This document is not an insurance policy"},
		{name: "invalid with empty reason", input: "INVALID:   ", wantValid: false, wantReason: "This document is not an insurance policy"},
		{name: "unclear answer is conservative", input: "I think this might be insurance", wantValid: false, wantReason: "Unable to verify this as a valid insurance policy document"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, reason := ParseValidityVerdict(tc.input)
			if valid != tc.wantValid {
				t.Fatalf("valid: want=%v got=%v", tc.wantValid, valid)
			}
			if !valid && reason != tc.wantReason {
				t.Fatalf("reason: want=%q got=%q", tc.wantReason, reason)
			}
		})
	}
}

func TestParseInsuranceType(t *testing.T) {
	cases := []struct {
		input string
		want  types.InsuranceType
	}{
		{"LIFE", types.InsuranceLife},
		{" health \n", types.InsuranceHealth},
		{"motor", types.InsuranceMotor},
		{"TRAVEL", types.InsuranceOther},
		{"OTHER", types.InsuranceOther},
		{"", types.InsuranceOther},
	}
	for _, tc := range cases {
		if got := ParseInsuranceType(tc.input); got != tc.want {
			t.Fatalf("ParseInsuranceType(%q): want=%s got=%s", tc.input, tc.want, got)
		}
	}
}
