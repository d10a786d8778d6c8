package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

const renewalHorizonDays = 90

// CategorySummary aggregates one insurance category's verified policies.
type CategorySummary struct {
	PolicyCount         int             `json:"policy_count"`
	TotalSumAssured     decimal.Decimal `json:"total_sum_assured"`
	TotalMonthlyPremium decimal.Decimal `json:"total_monthly_premium"`
	ActiveCount         int             `json:"active_count"`
	ExpiredCount        int             `json:"expired_count"`
	TotalMaturityAmount decimal.Decimal `json:"total_maturity_amount"`
}

// UpcomingRenewal is a policy whose cover ends within the renewal horizon.
type UpcomingRenewal struct {
	PolicyID      uuid.UUID           `json:"policy_id"`
	Name          string              `json:"name"`
	InsuranceType types.InsuranceType `json:"insurance_type"`
	InsurerName   string              `json:"insurer_name,omitempty"`
	EndDate       time.Time           `json:"end_date"`
	DaysLeft      int                 `json:"days_left"`
}

type DashboardSummary struct {
	Categories          map[string]CategorySummary `json:"categories"`
	UpcomingRenewals    []UpcomingRenewal          `json:"upcoming_renewals"`
	RecentPolicies      []PolicyListItem           `json:"recent_policies"`
	ProfileCompleteness int                        `json:"profile_completeness"`
}

type DashboardService interface {
	Summary(ctx context.Context, userID uuid.UUID) (*DashboardSummary, error)
}

type dashboardService struct {
	db         *gorm.DB
	log        *logger.Logger
	policyRepo repos.PolicyRepo
	userRepo   repos.UserRepo
}

func NewDashboardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policyRepo repos.PolicyRepo,
	userRepo repos.UserRepo,
) DashboardService {
	return &dashboardService{
		db:         db,
		log:        baseLog.With("service", "DashboardService"),
		policyRepo: policyRepo,
		userRepo:   userRepo,
	}
}

func (ds *dashboardService) Summary(ctx context.Context, userID uuid.UUID) (*DashboardSummary, error) {
	summary := &DashboardSummary{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		policies, err := ds.policyRepo.ListVerifiedByUser(gctx, nil, userID)
		if err != nil {
			return err
		}
		summary.Categories = buildCategorySummaries(policies)
		summary.UpcomingRenewals = buildUpcomingRenewals(policies)
		summary.RecentPolicies = buildRecentPolicies(policies)
		return nil
	})

	g.Go(func() error {
		user, err := ds.userRepo.GetByID(gctx, nil, userID)
		if err != nil {
			return err
		}
		summary.ProfileCompleteness = profileCompleteness(user)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

func buildCategorySummaries(policies []*types.Policy) map[string]CategorySummary {
	out := map[string]CategorySummary{
		string(types.InsuranceLife):   {},
		string(types.InsuranceHealth): {},
		string(types.InsuranceMotor):  {},
	}
	for _, p := range policies {
		key := string(p.InsuranceType)
		cat, ok := out[key]
		if !ok {
			continue
		}
		cat.PolicyCount++
		if p.Coverage != nil {
			if p.Coverage.SumAssured != nil {
				cat.TotalSumAssured = cat.TotalSumAssured.Add(*p.Coverage.SumAssured)
			}
			if p.Coverage.MaturityAmount != nil {
				cat.TotalMaturityAmount = cat.TotalMaturityAmount.Add(*p.Coverage.MaturityAmount)
			}
			cat.TotalMonthlyPremium = cat.TotalMonthlyPremium.Add(p.Coverage.MonthlyPremium())
			if p.Coverage.IsExpired() {
				cat.ExpiredCount++
			} else {
				cat.ActiveCount++
			}
		} else {
			cat.ActiveCount++
		}
		out[key] = cat
	}
	return out
}

func buildUpcomingRenewals(policies []*types.Policy) []UpcomingRenewal {
	renewals := []UpcomingRenewal{}
	for _, p := range policies {
		if p.Coverage == nil {
			continue
		}
		days, ok := p.Coverage.DaysUntilExpiry()
		if !ok || days < 0 || days > renewalHorizonDays {
			continue
		}
		renewals = append(renewals, UpcomingRenewal{
			PolicyID:      p.ID,
			Name:          p.Name,
			InsuranceType: p.InsuranceType,
			InsurerName:   p.InsurerName,
			EndDate:       *p.Coverage.EndDate,
			DaysLeft:      days,
		})
	}
	sort.Slice(renewals, func(i, j int) bool {
		return renewals[i].DaysLeft < renewals[j].DaysLeft
	})
	return renewals
}

func buildRecentPolicies(policies []*types.Policy) []PolicyListItem {
	sorted := make([]*types.Policy, len(policies))
	copy(sorted, policies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].UploadedAt.After(sorted[j].UploadedAt)
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	out := make([]PolicyListItem, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, toListItem(p))
	}
	return out
}

// profileCompleteness scores the user's profile 0-100 over four fields.
func profileCompleteness(user *types.User) int {
	if user == nil {
		return 0
	}
	score := 0
	if user.PhoneNumber != "" {
		score += 25
	}
	if user.FullName != "" {
		score += 25
	}
	if user.Email != "" {
		score += 25
	}
	if user.DateOfBirth != nil {
		score += 25
	}
	return score
}
