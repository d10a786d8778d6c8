package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/extraction"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/platform/gemini"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
	"github.com/nomisafe/nomisafe-backend/internal/services"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// ExtractPolicyHandler runs the AI extraction for one policy: flips it to
// PROCESSING, feeds the stored document through the extraction pipeline,
// upserts the raw result, and flips the policy COMPLETED or FAILED. Status
// writes go straight to the root DB handle so the polling endpoint sees them
// immediately.
type ExtractPolicyHandler struct {
	db         *gorm.DB
	log        *logger.Logger
	policyRepo repos.PolicyRepo
	docRepo    repos.ExtractedDocumentRepo
	bucket     services.BucketService
	extractor  extraction.Extractor
}

func NewExtractPolicyHandler(
	db *gorm.DB,
	baseLog *logger.Logger,
	policyRepo repos.PolicyRepo,
	docRepo repos.ExtractedDocumentRepo,
	bucket services.BucketService,
	extractor extraction.Extractor,
) *ExtractPolicyHandler {
	return &ExtractPolicyHandler{
		db:         db,
		log:        baseLog.With("handler", "ExtractPolicy"),
		policyRepo: policyRepo,
		docRepo:    docRepo,
		bucket:     bucket,
		extractor:  extractor,
	}
}

func (h *ExtractPolicyHandler) JobType() string { return types.JobTypePolicyExtract }

func (h *ExtractPolicyHandler) Run(ctx context.Context, job *types.ExtractionJob) error {
	policy, err := h.policyRepo.GetByID(ctx, nil, job.PolicyID)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	if policy == nil {
		return &TerminalError{Err: fmt.Errorf("policy %s no longer exists", job.PolicyID)}
	}

	if err := h.policyRepo.UpdateFields(ctx, nil, policy.ID, map[string]interface{}{
		"ai_extraction_status": types.ExtractionProcessing,
	}); err != nil {
		return fmt.Errorf("mark policy processing: %w", err)
	}

	result, err := h.extract(ctx, policy)
	if err != nil {
		h.markFailed(ctx, policy.ID, err)
		if isTerminalExtractionError(err) {
			return &TerminalError{Err: err}
		}
		return err
	}

	raw, err := json.Marshal(result.Data)
	if err != nil {
		h.markFailed(ctx, policy.ID, err)
		return &TerminalError{Err: fmt.Errorf("encode extraction result: %w", err)}
	}

	now := time.Now()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, uErr := h.docRepo.Upsert(ctx, tx, &types.ExtractedDocument{
			PolicyID:    policy.ID,
			Raw:         raw,
			ModelName:   result.ModelName,
			ExtractedAt: now,
		}); uErr != nil {
			return uErr
		}
		return h.policyRepo.UpdateFields(ctx, tx, policy.ID, map[string]interface{}{
			"ai_extraction_status": types.ExtractionCompleted,
			"ai_extracted_at":      now,
			"ai_extraction_error":  "",
			"rate_limited":         false,
		})
	})
	if err != nil {
		h.markFailed(ctx, policy.ID, err)
		return fmt.Errorf("persist extraction result: %w", err)
	}

	h.log.Info("Policy extraction completed",
		"policy_id", policy.ID,
		"insurance_type", string(result.InsuranceType),
	)
	return nil
}

func (h *ExtractPolicyHandler) extract(ctx context.Context, policy *types.Policy) (*extraction.Result, error) {
	document, err := h.bucket.DownloadFile(ctx, policy.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	return h.extractor.ExtractPolicy(ctx, policy.Name, document)
}

// markFailed records the failure on the policy so status polling surfaces
// it. The error text is capped at 1000 chars; rate-limit failures are
// flagged so the client can say "try again later" instead of "bad document".
func (h *ExtractPolicyHandler) markFailed(ctx context.Context, policyID uuid.UUID, cause error) {
	updates := map[string]interface{}{
		"ai_extraction_status": types.ExtractionFailed,
		"ai_extraction_error":  truncate(cause.Error(), 1000),
		"rate_limited":         gemini.IsRateLimited(cause),
	}
	if err := h.policyRepo.UpdateFields(ctx, nil, policyID, updates); err != nil {
		h.log.Warn("Failed to record extraction failure", "policy_id", policyID, "error", err.Error())
	}
}

func isTerminalExtractionError(err error) bool {
	var notInsurance *extraction.NotInsuranceError
	var unsupported *extraction.UnsupportedCategoryError
	var parseErr *extraction.ParseError
	return errors.As(err, &notInsurance) ||
		errors.As(err, &unsupported) ||
		errors.As(err, &parseErr)
}
