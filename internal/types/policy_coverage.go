package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PolicyCoverage is the one-to-one financial block of a policy.
type PolicyCoverage struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	SumAssured       *decimal.Decimal `gorm:"column:sum_assured;type:numeric(14,2)" json:"sum_assured,omitempty"`
	PremiumAmount    *decimal.Decimal `gorm:"column:premium_amount;type:numeric(14,2)" json:"premium_amount,omitempty"`
	PremiumFrequency PremiumFrequency `gorm:"column:premium_frequency" json:"premium_frequency,omitempty"`
	MaturityAmount   *decimal.Decimal `gorm:"column:maturity_amount;type:numeric(14,2)" json:"maturity_amount,omitempty"`

	IssueDate    *time.Time `gorm:"column:issue_date;type:date" json:"issue_date,omitempty"`
	StartDate    *time.Time `gorm:"column:start_date;type:date" json:"start_date,omitempty"`
	EndDate      *time.Time `gorm:"column:end_date;type:date" json:"end_date,omitempty"`
	MaturityDate *time.Time `gorm:"column:maturity_date;type:date" json:"maturity_date,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PolicyCoverage) TableName() string { return "policy_coverage" }

// IsExpired reports whether the policy's cover window has passed.
// A coverage without an end date never counts as expired.
func (c *PolicyCoverage) IsExpired() bool {
	if c == nil || c.EndDate == nil {
		return false
	}
	return c.EndDate.Before(truncateToDay(time.Now()))
}

// DaysUntilExpiry is the number of whole days until end_date (negative once
// expired). Returns ok=false when there is no end date.
func (c *PolicyCoverage) DaysUntilExpiry() (int, bool) {
	if c == nil || c.EndDate == nil {
		return 0, false
	}
	days := int(c.EndDate.Sub(truncateToDay(time.Now())).Hours() / 24)
	return days, true
}

// MonthlyPremium normalizes the premium to a per-month figure for dashboard
// totals. Unknown frequency yields zero.
func (c *PolicyCoverage) MonthlyPremium() decimal.Decimal {
	if c == nil || c.PremiumAmount == nil {
		return decimal.Zero
	}
	months := c.PremiumFrequency.MonthsPerPeriod()
	if months == 0 {
		return decimal.Zero
	}
	return c.PremiumAmount.Div(decimal.NewFromInt(int64(months)))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
