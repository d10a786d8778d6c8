package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MotorInsuranceDetails exists only for MOTOR policies. No nested children.
type MotorInsuranceDetails struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	VehicleType        string `gorm:"column:vehicle_type" json:"vehicle_type,omitempty"` // TWO_WHEELER|FOUR_WHEELER|COMMERCIAL
	PolicyType         string `gorm:"column:policy_type" json:"policy_type,omitempty"`   // COMPREHENSIVE|THIRD_PARTY|STANDALONE_OD
	VehicleMake        string `gorm:"column:vehicle_make" json:"vehicle_make,omitempty"`
	VehicleModel       string `gorm:"column:vehicle_model" json:"vehicle_model,omitempty"`
	RegistrationNumber string `gorm:"column:registration_number" json:"registration_number,omitempty"`
	EngineNumber       string `gorm:"column:engine_number" json:"engine_number,omitempty"`
	ChassisNumber      string `gorm:"column:chassis_number" json:"chassis_number,omitempty"`
	YearOfManufacture  *int   `gorm:"column:year_of_manufacture" json:"year_of_manufacture,omitempty"`

	IDV                  *decimal.Decimal `gorm:"column:idv;type:numeric(14,2)" json:"idv,omitempty"`
	OwnDamageCover       *decimal.Decimal `gorm:"column:own_damage_cover;type:numeric(14,2)" json:"own_damage_cover,omitempty"`
	ThirdPartyCover      *decimal.Decimal `gorm:"column:third_party_cover;type:numeric(14,2)" json:"third_party_cover,omitempty"`
	NCBPercentage        *decimal.Decimal `gorm:"column:ncb_percentage;type:numeric(5,2)" json:"ncb_percentage,omitempty"`
	PreviousPolicyNumber string           `gorm:"column:previous_policy_number" json:"previous_policy_number,omitempty"`

	HasZeroDepreciation   bool `gorm:"column:has_zero_depreciation;not null;default:false" json:"has_zero_depreciation"`
	HasEngineProtection   bool `gorm:"column:has_engine_protection;not null;default:false" json:"has_engine_protection"`
	HasRoadsideAssistance bool `gorm:"column:has_roadside_assistance;not null;default:false" json:"has_roadside_assistance"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (MotorInsuranceDetails) TableName() string { return "motor_insurance_details" }
