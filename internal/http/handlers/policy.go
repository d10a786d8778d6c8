package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nomisafe/nomisafe-backend/internal/http/response"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/ctxutil"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/services"
)

type PolicyHandler struct {
	log          *logger.Logger
	policies     services.PolicyService
	verification services.VerificationService
}

func NewPolicyHandler(
	baseLog *logger.Logger,
	policies services.PolicyService,
	verification services.VerificationService,
) *PolicyHandler {
	return &PolicyHandler{
		log:          baseLog.With("handler", "PolicyHandler"),
		policies:     policies,
		verification: verification,
	}
}

// Upload accepts a multipart form with a "document" PDF and a "name" field.
// The response returns immediately; extraction happens in the background.
func (h *PolicyHandler) Upload(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_name", errors.New("name is required"))
		return
	}
	fileHeader, err := c.FormFile("document")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_document", errors.New("document file is required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_document", err)
		return
	}
	defer f.Close()
	document, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_document", err)
		return
	}

	policy, err := h.policies.Upload(c.Request.Context(), rd.UserID, name, document)
	if err != nil {
		if errors.Is(err, services.ErrDocumentTooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "document_too_large", err)
			return
		}
		h.log.Error("Policy upload failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", errors.New("failed to upload policy"))
		return
	}
	response.RespondCreated(c, gin.H{
		"id":                   policy.ID,
		"name":                 policy.Name,
		"uploaded_at":          policy.UploadedAt,
		"ai_extraction_status": policy.AIExtractionStatus,
	})
}

func (h *PolicyHandler) ExtractionStatus(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "policy_not_found", services.ErrPolicyNotFound)
		return
	}
	status, err := h.policies.ExtractionStatus(c.Request.Context(), rd.UserID, policyID)
	if err != nil {
		if errors.Is(err, services.ErrPolicyNotFound) {
			response.RespondError(c, http.StatusNotFound, "policy_not_found", err)
			return
		}
		h.log.Error("Extraction status failed", "policy_id", policyID, "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "status_failed", errors.New("failed to load extraction status"))
		return
	}
	response.RespondOK(c, status)
}

func (h *PolicyHandler) Verify(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "policy_not_found", services.ErrPolicyNotFound)
		return
	}
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.verification.Commit(c.Request.Context(), rd.UserID, policyID, data); err != nil {
		switch {
		case errors.Is(err, services.ErrPolicyNotFound):
			response.RespondError(c, http.StatusNotFound, "policy_not_found", err)
		case errors.Is(err, services.ErrExtractionNotReady):
			response.RespondError(c, http.StatusConflict, "extraction_not_ready", err)
		default:
			h.log.Error("Verification commit failed", "policy_id", policyID, "error", err.Error())
			response.RespondError(c, http.StatusBadRequest, "verification_failed", errors.New("failed to save verified policy data"))
		}
		return
	}
	response.RespondOK(c, gin.H{"message": "policy verified", "policy_id": policyID})
}

func (h *PolicyHandler) List(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	category := strings.ToUpper(strings.TrimSpace(c.Query("category")))
	buckets, err := h.policies.List(c.Request.Context(), rd.UserID, category)
	if err != nil {
		h.log.Error("Policy list failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "list_failed", errors.New("failed to list policies"))
		return
	}
	response.RespondOK(c, buckets)
}

func (h *PolicyHandler) Detail(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "policy_not_found", services.ErrPolicyNotFound)
		return
	}
	detail, err := h.policies.Detail(c.Request.Context(), rd.UserID, policyID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPolicyNotFound):
			response.RespondError(c, http.StatusNotFound, "policy_not_found", err)
		case errors.Is(err, services.ErrPolicyNotVerified):
			response.RespondError(c, http.StatusForbidden, "policy_not_verified", err)
		default:
			h.log.Error("Policy detail failed", "policy_id", policyID, "error", err.Error())
			response.RespondError(c, http.StatusInternalServerError, "detail_failed", errors.New("failed to load policy"))
		}
		return
	}
	response.RespondOK(c, detail)
}

func (h *PolicyHandler) Delete(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "policy_not_found", services.ErrPolicyNotFound)
		return
	}
	if err := h.policies.Delete(c.Request.Context(), rd.UserID, policyID); err != nil {
		if errors.Is(err, services.ErrPolicyNotFound) {
			response.RespondError(c, http.StatusNotFound, "policy_not_found", err)
			return
		}
		h.log.Error("Policy delete failed", "policy_id", policyID, "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", errors.New("failed to delete policy"))
		return
	}
	response.RespondOK(c, gin.H{"message": "policy deleted", "policy_id": policyID})
}

func (h *PolicyHandler) ReExtract(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "policy_not_found", services.ErrPolicyNotFound)
		return
	}
	if err := h.policies.ReExtract(c.Request.Context(), rd.UserID, policyID); err != nil {
		switch {
		case errors.Is(err, services.ErrPolicyNotFound):
			response.RespondError(c, http.StatusNotFound, "policy_not_found", err)
		case errors.Is(err, services.ErrReExtractNotAllowed):
			response.RespondError(c, http.StatusConflict, "re_extract_not_allowed", err)
		default:
			h.log.Error("Re-extract failed", "policy_id", policyID, "error", err.Error())
			response.RespondError(c, http.StatusInternalServerError, "re_extract_failed", errors.New("failed to requeue extraction"))
		}
		return
	}
	response.RespondOK(c, gin.H{"message": "extraction requeued", "policy_id": policyID})
}
