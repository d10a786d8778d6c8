package extraction

import (
	"context"
	"fmt"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/platform/gemini"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// NotInsuranceError means the document failed validation: it is not an
// insurance policy at all. Terminal for the document; retrying will not
// help.
type NotInsuranceError struct {
	Reason string
}

func (e *NotInsuranceError) Error() string {
	return fmt.Sprintf("Invalid document: %s. Please upload only Life, Health, or Motor insurance policy documents.", e.Reason)
}

// UnsupportedCategoryError means the document is insurance-like but not a
// Life, Health, or Motor policy. Also terminal.
type UnsupportedCategoryError struct{}

func (e *UnsupportedCategoryError) Error() string {
	return "This document doesn't appear to be a valid Health, Life, or Motor insurance policy. Please upload only insurance policy documents."
}

// Result carries the classified category and the raw structured payload the
// model produced. Data always contains an "insurance_type" key.
type Result struct {
	InsuranceType types.InsuranceType
	ModelName     string
	Data          map[string]any
}

// Extractor runs the full document pipeline: upload, validate, classify,
// extract, parse.
type Extractor interface {
	ExtractPolicy(ctx context.Context, displayName string, document []byte) (*Result, error)
}

type extractor struct {
	model gemini.Client
	log   *logger.Logger
}

func NewExtractor(model gemini.Client, baseLog *logger.Logger) Extractor {
	return &extractor{
		model: model,
		log:   baseLog.With("component", "Extractor"),
	}
}

func (e *extractor) ExtractPolicy(ctx context.Context, displayName string, document []byte) (*Result, error) {
	file, err := e.model.UploadFile(ctx, displayName, document, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	defer func() {
		if dErr := e.model.DeleteFile(context.WithoutCancel(ctx), file); dErr != nil {
			e.log.Warn("Failed to delete uploaded file", "file", file.Name, "error", dErr.Error())
		}
	}()

	verdict, err := e.model.GenerateText(ctx, validityPrompt, file)
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}
	valid, reason := ParseValidityVerdict(verdict)
	if !valid {
		return nil, &NotInsuranceError{Reason: reason}
	}

	typeResp, err := e.model.GenerateText(ctx, insuranceTypePrompt, file)
	if err != nil {
		return nil, fmt.Errorf("classify document: %w", err)
	}
	insuranceType := ParseInsuranceType(typeResp)
	if !insuranceType.IsSupported() {
		return nil, &UnsupportedCategoryError{}
	}

	e.log.Info("Extracting policy data", "insurance_type", string(insuranceType), "file", displayName)
	raw, err := e.model.GenerateText(ctx, extractionPromptFor(string(insuranceType)), file)
	if err != nil {
		return nil, fmt.Errorf("extract policy data: %w", err)
	}

	data, err := ParseModelJSON(raw)
	if err != nil {
		return nil, err
	}
	data["insurance_type"] = string(insuranceType)

	return &Result{
		InsuranceType: insuranceType,
		ModelName:     e.model.ModelName(),
		Data:          data,
	}, nil
}
