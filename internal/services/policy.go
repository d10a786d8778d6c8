package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/platform/gemini"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

var (
	ErrPolicyNotFound      = errors.New("policy not found")
	ErrPolicyNotVerified   = errors.New("policy is not verified yet")
	ErrExtractionNotReady  = errors.New("extraction is not complete for this policy")
	ErrDocumentTooLarge    = fmt.Errorf("document exceeds the %d MB limit", gemini.MaxUploadBytes/(1024*1024))
	ErrReExtractNotAllowed = errors.New("re-extraction is only available for failed policies")
)

// ExtractionStatusResult is the status-poll payload. ExtractedData is only
// populated once the extraction is COMPLETED.
type ExtractionStatusResult struct {
	PolicyID           uuid.UUID              `json:"policy_id"`
	AIExtractionStatus types.ExtractionStatus `json:"ai_extraction_status"`
	AIExtractedAt      *time.Time             `json:"ai_extracted_at,omitempty"`
	AIExtractionError  string                 `json:"ai_extraction_error,omitempty"`
	RateLimited        bool                   `json:"rate_limited"`
	ExtractedData      map[string]any         `json:"extracted_data,omitempty"`
}

// PolicyListItem is one row of the bucketed list view.
type PolicyListItem struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	InsuranceType types.InsuranceType `json:"insurance_type,omitempty"`
	PolicyNumber  string              `json:"policy_number,omitempty"`
	InsurerName   string              `json:"insurer_name,omitempty"`
	SumAssured    *decimal.Decimal    `json:"sum_assured,omitempty"`
	PremiumAmount *decimal.Decimal    `json:"premium_amount,omitempty"`
	EndDate       *time.Time          `json:"end_date,omitempty"`
	IsExpired     bool                `json:"is_expired"`
	UploadedAt    time.Time           `json:"uploaded_at"`
}

// PolicyBuckets partitions a user's policies by category. Unverified
// policies (still pending, failed, or awaiting user verification) always
// land in Unprocessed regardless of any category filter.
type PolicyBuckets struct {
	Life        []PolicyListItem `json:"life"`
	Health      []PolicyListItem `json:"health"`
	Motor       []PolicyListItem `json:"motor"`
	Unprocessed []PolicyListItem `json:"unprocessed"`
}

// PolicyDetail is the full verified record plus a document URL.
type PolicyDetail struct {
	*types.Policy
	DocumentURL string `json:"document_url"`
}

type PolicyService interface {
	// Upload stores the document blob and creates the Policy row (PENDING)
	// plus its extraction job in one transaction.
	Upload(ctx context.Context, userID uuid.UUID, name string, document []byte) (*types.Policy, error)
	ExtractionStatus(ctx context.Context, userID, policyID uuid.UUID) (*ExtractionStatusResult, error)
	List(ctx context.Context, userID uuid.UUID, category string) (*PolicyBuckets, error)
	Detail(ctx context.Context, userID, policyID uuid.UUID) (*PolicyDetail, error)
	Delete(ctx context.Context, userID, policyID uuid.UUID) error
	// ReExtract requeues extraction for a FAILED policy.
	ReExtract(ctx context.Context, userID, policyID uuid.UUID) error
}

type policyService struct {
	db         *gorm.DB
	log        *logger.Logger
	policyRepo repos.PolicyRepo
	docRepo    repos.ExtractedDocumentRepo
	jobRepo    repos.ExtractionJobRepo
	bucket     BucketService
}

func NewPolicyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policyRepo repos.PolicyRepo,
	docRepo repos.ExtractedDocumentRepo,
	jobRepo repos.ExtractionJobRepo,
	bucket BucketService,
) PolicyService {
	return &policyService{
		db:         db,
		log:        baseLog.With("service", "PolicyService"),
		policyRepo: policyRepo,
		docRepo:    docRepo,
		jobRepo:    jobRepo,
		bucket:     bucket,
	}
}

func (ps *policyService) Upload(ctx context.Context, userID uuid.UUID, name string, document []byte) (*types.Policy, error) {
	if len(document) > gemini.MaxUploadBytes {
		return nil, ErrDocumentTooLarge
	}

	policyID := uuid.New()
	storageKey := fmt.Sprintf("policies/%s/%s.pdf", userID, policyID)

	if err := ps.bucket.UploadFile(ctx, storageKey, bytes.NewReader(document)); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	policy := &types.Policy{
		ID:                 policyID,
		UserID:             userID,
		Name:               name,
		StorageKey:         storageKey,
		SizeBytes:          int64(len(document)),
		UploadedAt:         time.Now(),
		AIExtractionStatus: types.ExtractionPending,
	}

	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cErr := ps.policyRepo.Create(ctx, tx, policy); cErr != nil {
			return fmt.Errorf("failed to create policy: %w", cErr)
		}
		payload, _ := json.Marshal(map[string]string{"storage_key": storageKey})
		_, jErr := ps.jobRepo.Create(ctx, tx, []*types.ExtractionJob{{
			OwnerUserID: userID,
			PolicyID:    policyID,
			JobType:     types.JobTypePolicyExtract,
			Status:      types.JobStatusQueued,
			Payload:     payload,
		}})
		if jErr != nil {
			return fmt.Errorf("failed to enqueue extraction job: %w", jErr)
		}
		return nil
	})
	if err != nil {
		// The orphaned blob is harmless; clean it up best-effort.
		if dErr := ps.bucket.DeleteFile(context.WithoutCancel(ctx), storageKey); dErr != nil {
			ps.log.Warn("Failed to delete blob after aborted upload", "key", storageKey, "error", dErr.Error())
		}
		return nil, err
	}
	return policy, nil
}

func (ps *policyService) ExtractionStatus(ctx context.Context, userID, policyID uuid.UUID) (*ExtractionStatusResult, error) {
	policy, err := ps.policyRepo.GetByIDForUser(ctx, nil, userID, policyID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, ErrPolicyNotFound
	}
	result := &ExtractionStatusResult{
		PolicyID:           policy.ID,
		AIExtractionStatus: policy.AIExtractionStatus,
		AIExtractedAt:      policy.AIExtractedAt,
		AIExtractionError:  policy.AIExtractionError,
		RateLimited:        policy.RateLimited,
	}
	if policy.AIExtractionStatus == types.ExtractionCompleted {
		doc, dErr := ps.docRepo.GetByPolicyID(ctx, nil, policy.ID)
		if dErr != nil {
			return nil, dErr
		}
		if doc != nil {
			var data map[string]any
			if uErr := json.Unmarshal(doc.Raw, &data); uErr != nil {
				return nil, fmt.Errorf("failed to decode extracted document: %w", uErr)
			}
			result.ExtractedData = data
		}
	}
	return result, nil
}

func (ps *policyService) List(ctx context.Context, userID uuid.UUID, category string) (*PolicyBuckets, error) {
	policies, err := ps.policyRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	buckets := &PolicyBuckets{
		Life:        []PolicyListItem{},
		Health:      []PolicyListItem{},
		Motor:       []PolicyListItem{},
		Unprocessed: []PolicyListItem{},
	}
	filter := types.InsuranceType(category)
	for _, p := range policies {
		item := toListItem(p)
		if !p.IsVerifiedByUser {
			buckets.Unprocessed = append(buckets.Unprocessed, item)
			continue
		}
		if filter.IsSupported() && p.InsuranceType != filter {
			continue
		}
		switch p.InsuranceType {
		case types.InsuranceLife:
			buckets.Life = append(buckets.Life, item)
		case types.InsuranceHealth:
			buckets.Health = append(buckets.Health, item)
		case types.InsuranceMotor:
			buckets.Motor = append(buckets.Motor, item)
		default:
			buckets.Unprocessed = append(buckets.Unprocessed, item)
		}
	}
	return buckets, nil
}

func toListItem(p *types.Policy) PolicyListItem {
	item := PolicyListItem{
		ID:            p.ID,
		Name:          p.Name,
		InsuranceType: p.InsuranceType,
		PolicyNumber:  p.PolicyNumber,
		InsurerName:   p.InsurerName,
		UploadedAt:    p.UploadedAt,
	}
	if p.Coverage != nil {
		item.SumAssured = p.Coverage.SumAssured
		item.PremiumAmount = p.Coverage.PremiumAmount
		item.EndDate = p.Coverage.EndDate
		item.IsExpired = p.Coverage.IsExpired()
	}
	return item
}

func (ps *policyService) Detail(ctx context.Context, userID, policyID uuid.UUID) (*PolicyDetail, error) {
	policy, err := ps.policyRepo.GetDetailForUser(ctx, nil, userID, policyID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, ErrPolicyNotFound
	}
	if !policy.IsVerifiedByUser {
		return nil, ErrPolicyNotVerified
	}
	return &PolicyDetail{
		Policy:      policy,
		DocumentURL: ps.bucket.GetPublicURL(policy.StorageKey),
	}, nil
}

func (ps *policyService) Delete(ctx context.Context, userID, policyID uuid.UUID) error {
	policy, err := ps.policyRepo.GetByIDForUser(ctx, nil, userID, policyID)
	if err != nil {
		return err
	}
	if policy == nil {
		return ErrPolicyNotFound
	}
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if jErr := ps.jobRepo.FullDeleteByPolicyID(ctx, tx, policy.ID); jErr != nil {
			return jErr
		}
		if dErr := ps.docRepo.FullDeleteByPolicyID(ctx, tx, policy.ID); dErr != nil {
			return dErr
		}
		// Child rows go with the FK cascade.
		return ps.policyRepo.FullDeleteByID(ctx, tx, policy.ID)
	})
	if err != nil {
		return err
	}
	if bErr := ps.bucket.DeleteFile(ctx, policy.StorageKey); bErr != nil {
		ps.log.Warn("Failed to delete policy blob", "key", policy.StorageKey, "error", bErr.Error())
	}
	return nil
}

func (ps *policyService) ReExtract(ctx context.Context, userID, policyID uuid.UUID) error {
	policy, err := ps.policyRepo.GetByIDForUser(ctx, nil, userID, policyID)
	if err != nil {
		return err
	}
	if policy == nil {
		return ErrPolicyNotFound
	}
	if policy.AIExtractionStatus != types.ExtractionFailed {
		return ErrReExtractNotAllowed
	}
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if uErr := ps.policyRepo.UpdateFields(ctx, tx, policy.ID, map[string]interface{}{
			"ai_extraction_status": types.ExtractionPending,
			"ai_extraction_error":  "",
			"rate_limited":         false,
		}); uErr != nil {
			return uErr
		}
		payload, _ := json.Marshal(map[string]string{"storage_key": policy.StorageKey})
		_, jErr := ps.jobRepo.Create(ctx, tx, []*types.ExtractionJob{{
			OwnerUserID: userID,
			PolicyID:    policy.ID,
			JobType:     types.JobTypePolicyExtract,
			Status:      types.JobStatusQueued,
			Payload:     payload,
		}})
		return jErr
	})
}
