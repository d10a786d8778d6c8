package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nomisafe/nomisafe-backend/internal/http/response"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(baseLog *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		log:         baseLog.With("handler", "AuthHandler"),
		authService: authService,
	}
}

type otpRequestBody struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var body otpRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.authService.RequestOTP(c.Request.Context(), body.PhoneNumber); err != nil {
		if errors.Is(err, services.ErrInvalidPhoneNumber) {
			response.RespondError(c, http.StatusBadRequest, "invalid_phone_number", err)
			return
		}
		h.log.Error("RequestOTP failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "otp_request_failed", errors.New("failed to send OTP"))
		return
	}
	response.RespondOK(c, gin.H{"message": "OTP sent"})
}

type otpVerifyBody struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var body otpVerifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pair, err := h.authService.VerifyOTP(c.Request.Context(), body.PhoneNumber, body.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPhoneNumber):
			response.RespondError(c, http.StatusBadRequest, "invalid_phone_number", err)
		case errors.Is(err, services.ErrOTPNotFound),
			errors.Is(err, services.ErrOTPInvalid),
			errors.Is(err, services.ErrOTPMaxAttempts):
			response.RespondError(c, http.StatusUnauthorized, "otp_verification_failed", err)
		default:
			h.log.Error("VerifyOTP failed", "error", err.Error())
			response.RespondError(c, http.StatusInternalServerError, "otp_verification_failed", errors.New("failed to verify OTP"))
		}
		return
	}
	response.RespondOK(c, pair)
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pair, err := h.authService.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrRefreshInvalid) {
			response.RespondError(c, http.StatusUnauthorized, "invalid_refresh_token", err)
			return
		}
		h.log.Error("Refresh failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "refresh_failed", errors.New("failed to refresh session"))
		return
	}
	response.RespondOK(c, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.authService.Logout(c.Request.Context(), body.RefreshToken); err != nil {
		h.log.Error("Logout failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "logout_failed", errors.New("failed to log out"))
		return
	}
	response.RespondOK(c, gin.H{"message": "logged out"})
}
