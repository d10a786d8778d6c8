package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// VerificationService commits the user-reviewed extraction data as the
// policy's final relational record. The whole commit is one transaction:
// either every row lands or none do.
type VerificationService interface {
	Commit(ctx context.Context, userID, policyID uuid.UUID, data map[string]any) error
}

type verificationService struct {
	db           *gorm.DB
	log          *logger.Logger
	policyRepo   repos.PolicyRepo
	childrenRepo repos.PolicyChildrenRepo
}

func NewVerificationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policyRepo repos.PolicyRepo,
	childrenRepo repos.PolicyChildrenRepo,
) VerificationService {
	return &verificationService{
		db:           db,
		log:          baseLog.With("service", "VerificationService"),
		policyRepo:   policyRepo,
		childrenRepo: childrenRepo,
	}
}

func (vs *verificationService) Commit(ctx context.Context, userID, policyID uuid.UUID, data map[string]any) error {
	policy, err := vs.policyRepo.GetByIDForUser(ctx, nil, userID, policyID)
	if err != nil {
		return err
	}
	if policy == nil {
		return ErrPolicyNotFound
	}
	if policy.AIExtractionStatus != types.ExtractionCompleted {
		return ErrExtractionNotReady
	}

	insuranceType := types.InsuranceType(strings.ToUpper(asString(data["insurance_type"])))
	if !insuranceType.IsSupported() {
		return fmt.Errorf("unsupported insurance_type %q", data["insurance_type"])
	}

	now := time.Now()
	return vs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if coverageData, ok := data["coverage"].(map[string]any); ok {
			coverage := &types.PolicyCoverage{
				PolicyID:         policy.ID,
				SumAssured:       asDecimal(coverageData["sum_assured"]),
				PremiumAmount:    asDecimal(coverageData["premium_amount"]),
				PremiumFrequency: types.PremiumFrequency(strings.ToUpper(asString(coverageData["premium_frequency"]))),
				MaturityAmount:   asDecimal(coverageData["maturity_amount"]),
				IssueDate:        asDate(coverageData["issue_date"]),
				StartDate:        asDate(coverageData["start_date"]),
				EndDate:          asDate(coverageData["end_date"]),
				MaturityDate:     asDate(coverageData["maturity_date"]),
			}
			if cErr := vs.childrenRepo.UpsertCoverage(ctx, tx, coverage); cErr != nil {
				return fmt.Errorf("failed to upsert coverage: %w", cErr)
			}
		}

		if nErr := vs.childrenRepo.ReplaceNominees(ctx, tx, policy.ID, buildNominees(policy.ID, data["nominees"])); nErr != nil {
			return fmt.Errorf("failed to replace nominees: %w", nErr)
		}
		if bErr := vs.childrenRepo.ReplaceBenefits(ctx, tx, policy.ID, buildBenefits(policy.ID, data["benefits"])); bErr != nil {
			return fmt.Errorf("failed to replace benefits: %w", bErr)
		}
		if eErr := vs.childrenRepo.ReplaceExclusions(ctx, tx, policy.ID, buildExclusions(policy.ID, data["exclusions"])); eErr != nil {
			return fmt.Errorf("failed to replace exclusions: %w", eErr)
		}

		if insuranceType == types.InsuranceHealth {
			if hErr := vs.commitHealthDetails(ctx, tx, policy.ID, data); hErr != nil {
				return hErr
			}
		}
		if insuranceType == types.InsuranceMotor {
			if mErr := vs.commitMotorDetails(ctx, tx, policy.ID, data); mErr != nil {
				return mErr
			}
		}

		// Verified flags go last: a failure anywhere above leaves the policy
		// unverified even before the rollback.
		if uErr := vs.policyRepo.UpdateFields(ctx, tx, policy.ID, map[string]interface{}{
			"insurance_type":      insuranceType,
			"policy_number":       asString(data["policy_number"]),
			"insurer_name":        asString(data["insurer_name"]),
			"is_verified_by_user": true,
			"verified_at":         now,
			"is_processed":        true,
			"last_processed":      now,
		}); uErr != nil {
			return fmt.Errorf("failed to update policy: %w", uErr)
		}
		return nil
	})
}

func (vs *verificationService) commitHealthDetails(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, data map[string]any) error {
	healthData, _ := data["health_details"].(map[string]any)
	details := &types.HealthInsuranceDetails{
		PolicyID:             policyID,
		PolicyType:           strings.ToUpper(asString(healthData["policy_type"])),
		RoomRentLimit:        asDecimal(healthData["room_rent_limit"]),
		CoPaymentPercentage:  asDecimal(healthData["co_payment_percentage"]),
		NetworkHospitalCount: asInt(healthData["network_hospital_count"]),
		CashlessFacility:     asBool(healthData["cashless_facility"]),
	}
	saved, err := vs.childrenRepo.UpsertHealthDetails(ctx, tx, details)
	if err != nil {
		return fmt.Errorf("failed to upsert health details: %w", err)
	}

	var members []*types.CoveredMember
	if rawMembers, ok := data["covered_members"].([]any); ok {
		for _, raw := range rawMembers {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			name := strings.TrimSpace(asString(m["name"]))
			if name == "" {
				continue
			}
			members = append(members, &types.CoveredMember{
				HealthDetailsID:       saved.ID,
				Name:                  name,
				Relationship:          asString(m["relationship"]),
				DateOfBirth:           asDate(m["date_of_birth"]),
				Age:                   asInt(m["age"]),
				PreExistingConditions: asString(m["pre_existing_conditions"]),
			})
		}
	}
	if err := vs.childrenRepo.ReplaceCoveredMembers(ctx, tx, saved.ID, members); err != nil {
		return fmt.Errorf("failed to replace covered members: %w", err)
	}
	return nil
}

func (vs *verificationService) commitMotorDetails(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, data map[string]any) error {
	motorData, _ := data["motor_details"].(map[string]any)
	details := &types.MotorInsuranceDetails{
		PolicyID:              policyID,
		VehicleType:           strings.ToUpper(asString(motorData["vehicle_type"])),
		PolicyType:            strings.ToUpper(asString(motorData["policy_type"])),
		VehicleMake:           asString(motorData["vehicle_make"]),
		VehicleModel:          asString(motorData["vehicle_model"]),
		RegistrationNumber:    asString(motorData["registration_number"]),
		EngineNumber:          asString(motorData["engine_number"]),
		ChassisNumber:         asString(motorData["chassis_number"]),
		YearOfManufacture:     asInt(motorData["year_of_manufacture"]),
		IDV:                   asDecimal(motorData["idv"]),
		OwnDamageCover:        asDecimal(motorData["own_damage_cover"]),
		ThirdPartyCover:       asDecimal(motorData["third_party_cover"]),
		NCBPercentage:         asDecimal(motorData["ncb_percentage"]),
		PreviousPolicyNumber:  asString(motorData["previous_policy_number"]),
		HasZeroDepreciation:   asBool(motorData["has_zero_depreciation"]),
		HasEngineProtection:   asBool(motorData["has_engine_protection"]),
		HasRoadsideAssistance: asBool(motorData["has_roadside_assistance"]),
	}
	if err := vs.childrenRepo.UpsertMotorDetails(ctx, tx, details); err != nil {
		return fmt.Errorf("failed to upsert motor details: %w", err)
	}
	return nil
}

func buildNominees(policyID uuid.UUID, raw any) []*types.PolicyNominee {
	items, _ := raw.([]any)
	var out []*types.PolicyNominee
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(asString(m["name"]))
		if name == "" {
			continue
		}
		out = append(out, &types.PolicyNominee{
			PolicyID:             policyID,
			Name:                 name,
			Relationship:         asString(m["relationship"]),
			AllocationPercentage: asDecimal(m["allocation_percentage"]),
			DateOfBirth:          asDate(m["date_of_birth"]),
			ContactNumber:        asString(m["contact_number"]),
		})
	}
	return out
}

func buildBenefits(policyID uuid.UUID, raw any) []*types.PolicyBenefit {
	items, _ := raw.([]any)
	var out []*types.PolicyBenefit
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(asString(m["name"]))
		if name == "" {
			continue
		}
		out = append(out, &types.PolicyBenefit{
			PolicyID:       policyID,
			BenefitType:    types.BenefitType(strings.ToUpper(asString(m["benefit_type"]))),
			Name:           name,
			Description:    asString(m["description"]),
			CoverageAmount: asDecimal(m["coverage_amount"]),
			IsActive:       true,
		})
	}
	return out
}

func buildExclusions(policyID uuid.UUID, raw any) []*types.PolicyExclusion {
	items, _ := raw.([]any)
	var out []*types.PolicyExclusion
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		title := strings.TrimSpace(asString(m["title"]))
		if title == "" {
			continue
		}
		out = append(out, &types.PolicyExclusion{
			PolicyID:    policyID,
			Title:       title,
			Description: asString(m["description"]),
		})
	}
	return out
}

// Coercion helpers. Extraction output passes through the client and back, so
// every field arrives as whatever JSON type the model (or the user's edit)
// produced. Unusable values become nil/zero, never an error: a blank premium
// must not block verification of the rest of the document.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	}
	return false
}

func asInt(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	case string:
		s := strings.TrimSpace(n)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		i := int(d.IntPart())
		return &i
	}
	return nil
}

func asDecimal(v any) *decimal.Decimal {
	switch n := v.(type) {
	case float64:
		d := decimal.NewFromFloat(n)
		return &d
	case int:
		d := decimal.NewFromInt(int64(n))
		return &d
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	}
	return nil
}

func asDate(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
