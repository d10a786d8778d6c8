package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Child collections are replace-on-verify: each verification commit deletes
// and recreates the full set, so none of these rows has a stable identity
// across edits.

type PolicyNominee struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	Name         string `gorm:"column:name;not null" json:"name"`
	Relationship string `gorm:"column:relationship" json:"relationship,omitempty"`
	// Allocations are stored as extracted/entered; they are not required to
	// sum to 100 across a policy's nominees.
	AllocationPercentage *decimal.Decimal `gorm:"column:allocation_percentage;type:numeric(5,2)" json:"allocation_percentage,omitempty"`
	DateOfBirth          *time.Time       `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	ContactNumber        string           `gorm:"column:contact_number" json:"contact_number,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PolicyNominee) TableName() string { return "policy_nominee" }

type PolicyBenefit struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	BenefitType    BenefitType      `gorm:"column:benefit_type" json:"benefit_type,omitempty"`
	Name           string           `gorm:"column:name;not null" json:"name"`
	Description    string           `gorm:"column:description" json:"description,omitempty"`
	CoverageAmount *decimal.Decimal `gorm:"column:coverage_amount;type:numeric(14,2)" json:"coverage_amount,omitempty"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PolicyBenefit) TableName() string { return "policy_benefit" }

type PolicyExclusion struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description" json:"description,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PolicyExclusion) TableName() string { return "policy_exclusion" }
