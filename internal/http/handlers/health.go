package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/http/response"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
)

type HealthHandler struct {
	log *logger.Logger
	db  *gorm.DB
}

func NewHealthHandler(baseLog *logger.Logger, db *gorm.DB) *HealthHandler {
	return &HealthHandler{log: baseLog.With("handler", "HealthHandler"), db: db}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "db_unavailable", err)
		return
	}
	response.RespondOK(c, gin.H{"status": "ok"})
}
