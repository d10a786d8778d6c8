package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nomisafe/nomisafe-backend/internal/http/response"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/ctxutil"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/services"
)

type DashboardHandler struct {
	log       *logger.Logger
	dashboard services.DashboardService
}

func NewDashboardHandler(baseLog *logger.Logger, dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		log:       baseLog.With("handler", "DashboardHandler"),
		dashboard: dashboard,
	}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	summary, err := h.dashboard.Summary(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Error("Dashboard summary failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "dashboard_failed", errors.New("failed to build dashboard"))
		return
	}
	response.RespondOK(c, summary)
}
