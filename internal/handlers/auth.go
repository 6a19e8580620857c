package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/auth/mfa"
	"github.com/barberhq/barberhq/internal/auth/providers"
	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/services"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/metrics"
	"github.com/barberhq/barberhq/pkg/response"
)

// AuthHandler exposes the authentication endpoints: register, login, token
// refresh, logout, and the current-user profile.
type AuthHandler struct {
	local    *providers.LocalProvider
	sessions *iauth.SessionService
	totp     *mfa.TOTPService
	users    *services.UserService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(local *providers.LocalProvider, sessions *iauth.SessionService, totp *mfa.TOTPService, users *services.UserService) *AuthHandler {
	return &AuthHandler{
		local:    local,
		sessions: sessions,
		totp:     totp,
		users:    users,
	}
}

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"max=128"`
}

// Register creates a new local account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.local.Register(providers.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("Unable to register account"))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	MFACode    string `json:"mfa_code"`
	BackupCode string `json:"backup_code"`
}

// Login authenticates with username/email and password, enforcing the MFA
// step for accounts that have it enabled. Banned accounts are rejected with a
// dedicated error regardless of credential validity.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.local.Authenticate(providers.AuthenticateInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		switch {
		case errors.Is(err, providers.ErrAccountBanned):
			response.Error(c, apperrors.ErrAccountBanned)
		case errors.Is(err, providers.ErrAccountLocked):
			response.Error(c, apperrors.New("ACCOUNT_LOCKED", "Account temporarily locked", http.StatusTooManyRequests))
		default:
			response.Error(c, apperrors.ErrInvalidCredentials)
		}
		return
	}

	if user.MFAEnabled {
		if !h.verifyMFA(c, user, req.MFACode, req.BackupCode) {
			return
		}
	}

	pair, session, err := h.sessions.CreateSession(user.ID, sessionMetadata(c))
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, gin.H{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    session.ID,
	})
}

func (h *AuthHandler) verifyMFA(c *gin.Context, user *models.User, code, backupCode string) bool {
	if h.totp == nil {
		response.Error(c, apperrors.ErrMFARequired)
		return false
	}

	switch {
	case code != "":
		valid, err := h.totp.VerifyCode(user.ID, code)
		if err != nil || !valid {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, apperrors.ErrMFAInvalid)
			return false
		}
	case backupCode != "":
		consumed, err := h.totp.UseBackupCode(user.ID, backupCode)
		if err != nil || !consumed {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, apperrors.ErrMFAInvalid)
			return false
		}
	default:
		response.Error(c, apperrors.ErrMFARequired)
		return false
	}
	return true
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh rotates the refresh token and issues a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, session, err := h.sessions.RefreshSession(req.RefreshToken)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    session.ID,
	})
}

// Logout revokes the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := currentSessionID(c)
	if sessionID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sessionID); err != nil {
		if errors.Is(err, iauth.ErrSessionNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// Me returns the authenticated account, flagging impersonated sessions.
func (h *AuthHandler) Me(c *gin.Context) {
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

	payload := gin.H{"user": user}
	if claims := currentClaims(c); claims != nil && claims.Impersonated() {
		payload["impersonated"] = true
		payload["impersonator_id"] = claims.ImpersonatorID
	}

	response.Success(c, http.StatusOK, payload)
}

type updateProfileRequest struct {
	Username    *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email       *string `json:"email" validate:"omitempty,email"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=128"`
	Avatar      *string `json:"avatar" validate:"omitempty,max=512"`
}

// UpdateProfile changes the caller's own account attributes.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Update(c.Request.Context(), userID, services.UpdateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword updates the caller's password after verifying the current one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.local.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, providers.ErrInvalidCredentials) {
			response.Error(c, apperrors.ErrInvalidCredentials)
			return
		}
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"changed": true})
}
