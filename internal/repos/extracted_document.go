package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

type ExtractedDocumentRepo interface {
	// Upsert writes the raw model output for a policy. policy_id is unique,
	// so a re-extraction overwrites the previous row instead of stacking a
	// second one.
	Upsert(ctx context.Context, tx *gorm.DB, doc *types.ExtractedDocument) (*types.ExtractedDocument, error)
	GetByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) (*types.ExtractedDocument, error)
	FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error
}

type extractedDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExtractedDocumentRepo(db *gorm.DB, baseLog *logger.Logger) ExtractedDocumentRepo {
	return &extractedDocumentRepo{db: db, log: baseLog.With("repo", "ExtractedDocumentRepo")}
}

func (r *extractedDocumentRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.ExtractedDocument) (*types.ExtractedDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if doc == nil {
		return nil, nil
	}
	if doc.ExtractedAt.IsZero() {
		doc.ExtractedAt = time.Now()
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "policy_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"raw", "model_name", "extracted_at"}),
		}).
		Create(doc).Error
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *extractedDocumentRepo) GetByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) (*types.ExtractedDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if policyID == uuid.Nil {
		return nil, nil
	}
	var doc types.ExtractedDocument
	err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Limit(1).
		Find(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == uuid.Nil {
		return nil, nil
	}
	return &doc, nil
}

func (r *extractedDocumentRepo) FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if policyID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Delete(&types.ExtractedDocument{}).Error
}
