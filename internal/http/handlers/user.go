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

type UserHandler struct {
	log         *logger.Logger
	userService services.UserService
}

func NewUserHandler(baseLog *logger.Logger, userService services.UserService) *UserHandler {
	return &UserHandler{
		log:         baseLog.With("handler", "UserHandler"),
		userService: userService,
	}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), rd.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			response.RespondError(c, http.StatusNotFound, "user_not_found", err)
			return
		}
		h.log.Error("GetProfile failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "profile_load_failed", errors.New("failed to load profile"))
		return
	}
	response.RespondOK(c, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var update services.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), rd.UserID, update)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			response.RespondError(c, http.StatusNotFound, "user_not_found", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "profile_update_failed", err)
		return
	}
	response.RespondOK(c, user)
}
