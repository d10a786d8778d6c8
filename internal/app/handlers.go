package app

import (
	"gorm.io/gorm"

	httpH "github.com/nomisafe/nomisafe-backend/internal/http/handlers"
	httpMW "github.com/nomisafe/nomisafe-backend/internal/http/middleware"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
)

type Handlers struct {
	Auth      *httpH.AuthHandler
	User      *httpH.UserHandler
	Policy    *httpH.PolicyHandler
	Dashboard *httpH.DashboardHandler
	Health    *httpH.HealthHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:      httpH.NewAuthHandler(log, serviceset.Auth),
		User:      httpH.NewUserHandler(log, serviceset.User),
		Policy:    httpH.NewPolicyHandler(log, serviceset.Policy, serviceset.Verification),
		Dashboard: httpH.NewDashboardHandler(log, serviceset.Dashboard),
		Health:    httpH.NewHealthHandler(log, db),
	}
}

func wireMiddleware(log *logger.Logger, serviceset Services) *httpMW.AuthMiddleware {
	log.Info("Wiring middleware...")
	return httpMW.NewAuthMiddleware(log, serviceset.Auth)
}
