package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HealthInsuranceDetails exists only for HEALTH policies.
type HealthInsuranceDetails struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	PolicyType           string           `gorm:"column:policy_type" json:"policy_type,omitempty"` // INDIVIDUAL|FAMILY|SENIOR_CITIZEN
	RoomRentLimit        *decimal.Decimal `gorm:"column:room_rent_limit;type:numeric(14,2)" json:"room_rent_limit,omitempty"`
	CoPaymentPercentage  *decimal.Decimal `gorm:"column:co_payment_percentage;type:numeric(5,2)" json:"co_payment_percentage,omitempty"`
	NetworkHospitalCount *int             `gorm:"column:network_hospital_count" json:"network_hospital_count,omitempty"`
	CashlessFacility     bool             `gorm:"column:cashless_facility;not null;default:false" json:"cashless_facility"`

	CoveredMembers []CoveredMember `gorm:"foreignKey:HealthDetailsID;references:ID" json:"covered_members,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (HealthInsuranceDetails) TableName() string { return "health_insurance_details" }

type CoveredMember struct {
	ID              uuid.UUID               `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	HealthDetailsID uuid.UUID               `gorm:"type:uuid;not null;index" json:"health_details_id"`
	HealthDetails   *HealthInsuranceDetails `gorm:"constraint:OnDelete:CASCADE;foreignKey:HealthDetailsID;references:ID" json:"health_details,omitempty"`

	Name                  string     `gorm:"column:name;not null" json:"name"`
	Relationship          string     `gorm:"column:relationship" json:"relationship,omitempty"`
	DateOfBirth           *time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	Age                   *int       `gorm:"column:age" json:"age,omitempty"`
	PreExistingConditions string     `gorm:"column:pre_existing_conditions" json:"pre_existing_conditions,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CoveredMember) TableName() string { return "covered_member" }
