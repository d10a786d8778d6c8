package app

import (
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/extraction"
	"github.com/nomisafe/nomisafe-backend/internal/jobs"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/services"
)

type Services struct {
	Auth         services.AuthService
	User         services.UserService
	Policy       services.PolicyService
	Verification services.VerificationService
	Dashboard    services.DashboardService

	Extractor extraction.Extractor
	JobWorker *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	otpStore := services.NewRedisOTPStore(clients.Redis, log)
	sms := services.NewLogSMSProvider(log)

	authService := services.NewAuthService(
		db, log,
		reposet.User,
		reposet.UserToken,
		otpStore,
		sms,
		cfg.JWTSecretKey,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	userService := services.NewUserService(db, log, reposet.User)
	policyService := services.NewPolicyService(db, log, reposet.Policy, reposet.ExtractedDocument, reposet.ExtractionJob, clients.GcsBucket)
	verificationService := services.NewVerificationService(db, log, reposet.Policy, reposet.PolicyChildren)
	dashboardService := services.NewDashboardService(db, log, reposet.Policy, reposet.User)

	extractor := extraction.NewExtractor(clients.GeminiClient, log)

	extractHandler := jobs.NewExtractPolicyHandler(
		db, log,
		reposet.Policy,
		reposet.ExtractedDocument,
		clients.GcsBucket,
		extractor,
	)
	registry := jobs.NewRegistry(extractHandler)
	worker := jobs.NewWorker(db, log, reposet.ExtractionJob, registry)

	return Services{
		Auth:         authService,
		User:         userService,
		Policy:       policyService,
		Verification: verificationService,
		Dashboard:    dashboardService,
		Extractor:    extractor,
		JobWorker:    worker,
	}, nil
}
