package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// PolicyRepo scopes every read and write by owner where a user is acting.
// Lookups for a policy the caller does not own return nil, nil so the
// service layer can answer 404 without leaking existence.
type PolicyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, policy *types.Policy) (*types.Policy, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error)
	GetDetailForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error)
	ListVerifiedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type policyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PolicyRepo {
	return &policyRepo{db: db, log: baseLog.With("repo", "PolicyRepo")}
}

func (r *policyRepo) Create(ctx context.Context, tx *gorm.DB, policy *types.Policy) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if policy == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(policy).Error; err != nil {
		return nil, err
	}
	return policy, nil
}

func (r *policyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var policy types.Policy
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&policy).Error
	if err != nil {
		return nil, err
	}
	if policy.ID == uuid.Nil {
		return nil, nil
	}
	return &policy, nil
}

func (r *policyRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var policy types.Policy
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&policy).Error
	if err != nil {
		return nil, err
	}
	if policy.ID == uuid.Nil {
		return nil, nil
	}
	return &policy, nil
}

// GetDetailForUser preloads the full verified graph: coverage, nominees,
// benefits, exclusions, and the category-specific detail rows.
func (r *policyRepo) GetDetailForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var policy types.Policy
	err := transaction.WithContext(ctx).
		Preload("Coverage").
		Preload("Nominees").
		Preload("Benefits").
		Preload("Exclusions").
		Preload("HealthDetail").
		Preload("HealthDetail.CoveredMembers").
		Preload("MotorDetail").
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&policy).Error
	if err != nil {
		return nil, err
	}
	if policy.ID == uuid.Nil {
		return nil, nil
	}
	return &policy, nil
}

func (r *policyRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Policy
	if userID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Preload("Coverage").
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *policyRepo) ListVerifiedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Policy
	if userID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Preload("Coverage").
		Where("user_id = ? AND is_verified_by_user = ?", userID, true).
		Order("verified_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *policyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Policy{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *policyRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		Delete(&types.Policy{}).Error
}
