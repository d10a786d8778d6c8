package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

type ExtractionJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, jobs []*types.ExtractionJob) ([]*types.ExtractionJob, error)
	GetLatestByPolicy(ctx context.Context, tx *gorm.DB, ownerUserID, policyID uuid.UUID, jobType string) (*types.ExtractionJob, error)
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.ExtractionJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error
}

type extractionJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExtractionJobRepo(db *gorm.DB, baseLog *logger.Logger) ExtractionJobRepo {
	return &extractionJobRepo{db: db, log: baseLog.With("repo", "ExtractionJobRepo")}
}

func (r *extractionJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.ExtractionJob) ([]*types.ExtractionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.ExtractionJob{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *extractionJobRepo) GetLatestByPolicy(ctx context.Context, tx *gorm.DB, ownerUserID, policyID uuid.UUID, jobType string) (*types.ExtractionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || policyID == uuid.Nil || jobType == "" {
		return nil, nil
	}
	var job types.ExtractionJob
	err := transaction.WithContext(ctx).
		Where("owner_user_id = ? AND policy_id = ? AND job_type = ?", ownerUserID, policyID, jobType).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

// ClaimNextRunnable atomically picks the oldest runnable job and marks it
// running. Runnable means queued, failed-but-retryable past the retry delay,
// or running with a heartbeat older than staleRunning (its worker died).
// SKIP LOCKED keeps concurrent workers from fighting over the same row.
func (r *extractionJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.ExtractionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.ExtractionJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.ExtractionJob
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND attempts < ?
						AND (last_error_at IS NULL OR last_error_at < ?)
					)
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
					)
				)
			`, types.JobStatusQueued, types.JobStatusFailed, maxAttempts, retryCutoff, types.JobStatusRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.ExtractionJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *extractionJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.ExtractionJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *extractionJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.ExtractionJob{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *extractionJobRepo) FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if policyID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("policy_id = ?", policyID).
		Delete(&types.ExtractionJob{}).Error
}
