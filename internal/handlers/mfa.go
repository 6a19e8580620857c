package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/auth/mfa"
	"github.com/barberhq/barberhq/internal/services"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/response"
)

// MFAHandler exposes TOTP enrolment and management endpoints.
type MFAHandler struct {
	totp  *mfa.TOTPService
	users *services.UserService
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(totp *mfa.TOTPService, users *services.UserService) *MFAHandler {
	return &MFAHandler{totp: totp, users: users}
}

// Setup provisions a fresh unconfirmed secret plus backup codes and returns
// the otpauth URI with its QR code.
func (h *MFAHandler) Setup(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	key, backupCodes, err := h.totp.GenerateSecret(user.ID, user.Username)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	png, err := h.totp.GenerateQRCode(key)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"secret":       key.Secret(),
		"otpauth_url":  key.String(),
		"qr_code_png":  base64.StdEncoding.EncodeToString(png),
		"backup_codes": backupCodes,
	})
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Confirm validates the first code and enables MFA on the account.
func (h *MFAHandler) Confirm(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req mfaCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	valid, err := h.totp.Confirm(userID, req.Code)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}
	if !valid {
		response.Error(c, apperrors.ErrMFAInvalid)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"confirmed": true})
}

// Disable removes the MFA secret from the caller's account.
func (h *MFAHandler) Disable(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.totp.Disable(userID); err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"disabled": true})
}

// BackupCodes reports how many backup codes remain unused.
func (h *MFAHandler) BackupCodes(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	remaining, err := h.totp.RemainingBackupCodes(userID)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"remaining": remaining})
}
