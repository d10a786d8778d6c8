package types

// InsuranceType is the policy category. It decides which extraction schema
// runs and which detail sub-entity applies.
type InsuranceType string

const (
	InsuranceLife   InsuranceType = "LIFE"
	InsuranceHealth InsuranceType = "HEALTH"
	InsuranceMotor  InsuranceType = "MOTOR"
	InsuranceOther  InsuranceType = "OTHER"
)

// IsSupported reports whether t is one of the three supported categories.
// Anything else (including "OTHER") is rejected at classification time.
func (t InsuranceType) IsSupported() bool {
	switch t {
	case InsuranceLife, InsuranceHealth, InsuranceMotor:
		return true
	}
	return false
}

// ExtractionStatus is the AI extraction lifecycle of a policy.
// PENDING -> PROCESSING -> COMPLETED | FAILED. There is no transition out of
// a terminal state except a fresh re-extraction request.
type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "PENDING"
	ExtractionProcessing ExtractionStatus = "PROCESSING"
	ExtractionCompleted  ExtractionStatus = "COMPLETED"
	ExtractionFailed     ExtractionStatus = "FAILED"
)

// PremiumFrequency are the stable payment-frequency values stored in DB.
type PremiumFrequency string

const (
	FrequencyMonthly    PremiumFrequency = "MONTHLY"
	FrequencyQuarterly  PremiumFrequency = "QUARTERLY"
	FrequencyHalfYearly PremiumFrequency = "HALF_YEARLY"
	FrequencyYearly     PremiumFrequency = "YEARLY"
)

// MonthsPerPeriod returns how many months one premium payment covers.
// Unrecognized frequencies return 0 so a bad value never inflates dashboard
// totals.
func (f PremiumFrequency) MonthsPerPeriod() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyHalfYearly:
		return 6
	case FrequencyYearly:
		return 12
	}
	return 0
}

type BenefitType string

const (
	BenefitBase  BenefitType = "BASE"
	BenefitRider BenefitType = "RIDER"
	BenefitAddon BenefitType = "ADDON"
	BenefitBonus BenefitType = "BONUS"
)
