package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

const JobTypePolicyExtract = "policy_extract"

// ExtractionJob is a durable background-work row. Workers claim runnable
// rows with FOR UPDATE SKIP LOCKED; a row whose heartbeat has gone stale is
// reclaimable, so a crashed worker cannot strand a policy mid-extraction.
type ExtractionJob struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	PolicyID    uuid.UUID `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy      *Policy   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	JobType  string `gorm:"column:job_type;not null;index" json:"job_type"`
	Status   string `gorm:"column:status;not null;index" json:"status"`
	Attempts int    `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error    string `gorm:"column:error" json:"error,omitempty"`

	LockedAt    *time.Time `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Result  datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExtractionJob) TableName() string { return "extraction_job" }
