package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExtractedDocument holds the raw, unvalidated AI output for one policy.
// It is upserted keyed by policy_id so concurrent extraction runs for the
// same policy never produce duplicate rows. It is the document the user
// verifies against; the verification commit, not this row, produces the
// authoritative relational data.
type ExtractedDocument struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	Policy   *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	Raw         datatypes.JSON `gorm:"column:raw;type:jsonb;not null" json:"raw"`
	ModelName   string         `gorm:"column:model_name;not null" json:"model_name"`
	ExtractedAt time.Time      `gorm:"column:extracted_at;not null;default:now()" json:"extracted_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ExtractedDocument) TableName() string { return "extracted_document" }
