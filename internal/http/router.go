package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/nomisafe/nomisafe-backend/internal/http/handlers"
	httpMW "github.com/nomisafe/nomisafe-backend/internal/http/middleware"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	UserHandler      *httpH.UserHandler
	PolicyHandler    *httpH.PolicyHandler
	DashboardHandler *httpH.DashboardHandler
	HealthHandler    *httpH.HealthHandler

	OtelEnabled bool
	ServiceName string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.OtelEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.Log))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthHandler != nil {
			api.POST("/auth/otp/request", cfg.AuthHandler.RequestOTP)
			api.POST("/auth/otp/verify", cfg.AuthHandler.VerifyOTP)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
			api.POST("/auth/logout", cfg.AuthHandler.Logout)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/me", cfg.UserHandler.UpdateMe)
		}

		if cfg.PolicyHandler != nil {
			protected.POST("/policies/upload", cfg.PolicyHandler.Upload)
			protected.GET("/policies", cfg.PolicyHandler.List)
			protected.GET("/policies/:id", cfg.PolicyHandler.Detail)
			protected.GET("/policies/:id/extraction-status", cfg.PolicyHandler.ExtractionStatus)
			protected.POST("/policies/:id/verify", cfg.PolicyHandler.Verify)
			protected.POST("/policies/:id/re-extract", cfg.PolicyHandler.ReExtract)
			protected.DELETE("/policies/:id", cfg.PolicyHandler.Delete)
		}

		if cfg.DashboardHandler != nil {
			protected.GET("/dashboard", cfg.DashboardHandler.GetDashboard)
		}
	}

	return r
}
