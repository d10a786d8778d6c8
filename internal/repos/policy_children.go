package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// PolicyChildrenRepo holds the verification-commit writes: one-to-one blocks
// are upserted in place, collections are wholesale-replaced. All methods are
// meant to run inside the committer's transaction.
type PolicyChildrenRepo interface {
	UpsertCoverage(ctx context.Context, tx *gorm.DB, coverage *types.PolicyCoverage) error
	ReplaceNominees(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, nominees []*types.PolicyNominee) error
	ReplaceBenefits(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, benefits []*types.PolicyBenefit) error
	ReplaceExclusions(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, exclusions []*types.PolicyExclusion) error
	UpsertHealthDetails(ctx context.Context, tx *gorm.DB, details *types.HealthInsuranceDetails) (*types.HealthInsuranceDetails, error)
	ReplaceCoveredMembers(ctx context.Context, tx *gorm.DB, healthDetailsID uuid.UUID, members []*types.CoveredMember) error
	UpsertMotorDetails(ctx context.Context, tx *gorm.DB, details *types.MotorInsuranceDetails) error
}

type policyChildrenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyChildrenRepo(db *gorm.DB, baseLog *logger.Logger) PolicyChildrenRepo {
	return &policyChildrenRepo{db: db, log: baseLog.With("repo", "PolicyChildrenRepo")}
}

func (r *policyChildrenRepo) UpsertCoverage(ctx context.Context, tx *gorm.DB, coverage *types.PolicyCoverage) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if coverage == nil || coverage.PolicyID == uuid.Nil {
		return nil
	}
	var existing types.PolicyCoverage
	err := transaction.WithContext(ctx).
		Where("policy_id = ?", coverage.PolicyID).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != uuid.Nil {
		coverage.ID = existing.ID
		coverage.CreatedAt = existing.CreatedAt
		return transaction.WithContext(ctx).Save(coverage).Error
	}
	return transaction.WithContext(ctx).Create(coverage).Error
}

func (r *policyChildrenRepo) ReplaceNominees(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, nominees []*types.PolicyNominee) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if policyID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Delete(&types.PolicyNominee{}).Error; err != nil {
		return err
	}
	if len(nominees) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&nominees).Error
}

func (r *policyChildrenRepo) ReplaceBenefits(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, benefits []*types.PolicyBenefit) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if policyID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Delete(&types.PolicyBenefit{}).Error; err != nil {
		return err
	}
	if len(benefits) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&benefits).Error
}

func (r *policyChildrenRepo) ReplaceExclusions(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, exclusions []*types.PolicyExclusion) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if policyID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Delete(&types.PolicyExclusion{}).Error; err != nil {
		return err
	}
	if len(exclusions) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&exclusions).Error
}

func (r *policyChildrenRepo) UpsertHealthDetails(ctx context.Context, tx *gorm.DB, details *types.HealthInsuranceDetails) (*types.HealthInsuranceDetails, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if details == nil || details.PolicyID == uuid.Nil {
		return nil, nil
	}
	var existing types.HealthInsuranceDetails
	err := transaction.WithContext(ctx).
		Where("policy_id = ?", details.PolicyID).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing.ID != uuid.Nil {
		details.ID = existing.ID
		details.CreatedAt = existing.CreatedAt
		if err := transaction.WithContext(ctx).Save(details).Error; err != nil {
			return nil, err
		}
		return details, nil
	}
	if err := transaction.WithContext(ctx).Create(details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

func (r *policyChildrenRepo) ReplaceCoveredMembers(ctx context.Context, tx *gorm.DB, healthDetailsID uuid.UUID, members []*types.CoveredMember) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if healthDetailsID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("health_details_id = ?", healthDetailsID).
		Delete(&types.CoveredMember{}).Error; err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&members).Error
}

func (r *policyChildrenRepo) UpsertMotorDetails(ctx context.Context, tx *gorm.DB, details *types.MotorInsuranceDetails) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if details == nil || details.PolicyID == uuid.Nil {
		return nil
	}
	var existing types.MotorInsuranceDetails
	err := transaction.WithContext(ctx).
		Where("policy_id = ?", details.PolicyID).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != uuid.Nil {
		details.ID = existing.ID
		details.CreatedAt = existing.CreatedAt
		return transaction.WithContext(ctx).Save(details).Error
	}
	return transaction.WithContext(ctx).Create(details).Error
}
