package extraction

import (
	"strings"

	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// ParseValidityVerdict interprets the document-validation response. The
// model is instructed to answer "VALID" or "INVALID: <reason>"; anything
// that matches neither is treated as invalid, since a policy we cannot
// confirm must not enter the pipeline.
func ParseValidityVerdict(text string) (bool, string) {
	result := strings.TrimSpace(text)
	upper := strings.ToUpper(result)
	switch {
	case strings.HasPrefix(upper, "VALID"):
		return true, ""
	case strings.HasPrefix(upper, "INVALID"):
		reason := "This document is not an insurance policy"
		if idx := strings.Index(result, ":"); idx >= 0 {
			if r := strings.TrimSpace(result[idx+1:]); r != "" {
				reason = r
			}
		}
		return false, reason
	default:
		return false, "Unable to verify this as a valid insurance policy document"
	}
}

// ParseInsuranceType maps the classification response to a supported
// category. Anything outside LIFE/HEALTH/MOTOR collapses to OTHER, which
// the pipeline rejects.
func ParseInsuranceType(text string) types.InsuranceType {
	t := types.InsuranceType(strings.ToUpper(strings.TrimSpace(text)))
	if !t.IsSupported() {
		return types.InsuranceOther
	}
	return t
}
