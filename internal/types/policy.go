package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Policy is the top-level record for one uploaded insurance document.
// is_verified_by_user is only ever set after a successful verification
// commit, which in turn requires ai_extraction_status == COMPLETED.
type Policy struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Name       string    `gorm:"column:name;not null" json:"name"`
	StorageKey string    `gorm:"column:storage_key;not null" json:"storage_key"`
	SizeBytes  int64     `gorm:"column:size_bytes" json:"size_bytes"`
	UploadedAt time.Time `gorm:"column:uploaded_at;not null;default:now();index" json:"uploaded_at"`

	InsuranceType InsuranceType `gorm:"column:insurance_type;index" json:"insurance_type,omitempty"`
	PolicyNumber  string        `gorm:"column:policy_number" json:"policy_number,omitempty"`
	InsurerName   string        `gorm:"column:insurer_name" json:"insurer_name,omitempty"`

	AIExtractionStatus ExtractionStatus `gorm:"column:ai_extraction_status;not null;default:'PENDING';index" json:"ai_extraction_status"`
	AIExtractedAt      *time.Time       `gorm:"column:ai_extracted_at" json:"ai_extracted_at,omitempty"`
	AIExtractionError  string           `gorm:"column:ai_extraction_error" json:"ai_extraction_error,omitempty"`
	RateLimited        bool             `gorm:"column:rate_limited;not null;default:false" json:"rate_limited"`

	IsVerifiedByUser bool       `gorm:"column:is_verified_by_user;not null;default:false;index" json:"is_verified_by_user"`
	VerifiedAt       *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`

	// Legacy bookkeeping kept for older clients.
	IsProcessed   bool       `gorm:"column:is_processed;not null;default:false" json:"is_processed"`
	LastProcessed *time.Time `gorm:"column:last_processed" json:"last_processed,omitempty"`

	Coverage     *PolicyCoverage         `gorm:"foreignKey:PolicyID;references:ID" json:"coverage,omitempty"`
	Nominees     []PolicyNominee         `gorm:"foreignKey:PolicyID;references:ID" json:"nominees,omitempty"`
	Benefits     []PolicyBenefit         `gorm:"foreignKey:PolicyID;references:ID" json:"benefits,omitempty"`
	Exclusions   []PolicyExclusion       `gorm:"foreignKey:PolicyID;references:ID" json:"exclusions,omitempty"`
	HealthDetail *HealthInsuranceDetails `gorm:"foreignKey:PolicyID;references:ID" json:"health_details,omitempty"`
	MotorDetail  *MotorInsuranceDetails  `gorm:"foreignKey:PolicyID;references:ID" json:"motor_details,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Policy) TableName() string { return "policy" }
