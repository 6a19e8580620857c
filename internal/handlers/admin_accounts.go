package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/response"
)

// AdminAccountHandler exposes the moderation endpoints: list, ban, reactivate,
// delete, and impersonate. Routes are mounted behind the super-admin
// middleware; the service re-checks authorization so the guard holds even if
// a route is wired without it.
type AdminAccountHandler struct {
	moderation *services.ModerationService
	users      *services.UserService
}

// NewAdminAccountHandler constructs an AdminAccountHandler.
func NewAdminAccountHandler(moderation *services.ModerationService, users *services.UserService) *AdminAccountHandler {
	return &AdminAccountHandler{moderation: moderation, users: users}
}

// List returns paginated accounts with optional status and search filters.
func (h *AdminAccountHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	users, total, err := h.users.List(c.Request.Context(), services.ListUsersOptions{
		Page:     page,
		PageSize: perPage,
		Filters: services.UserFilters{
			Status: c.Query("status"),
			Query:  c.Query("q"),
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}

	response.SuccessWithMeta(c, http.StatusOK, gin.H{"users": users}, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// Ban suspends the target account and revokes its sessions.
func (h *AdminAccountHandler) Ban(c *gin.Context) {
	targetID := c.Param("id")
	if err := h.moderation.Ban(c.Request.Context(), currentUserID(c), targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": targetID, "status": "banned"})
}

// Reactivate restores a banned account to active.
func (h *AdminAccountHandler) Reactivate(c *gin.Context) {
	targetID := c.Param("id")
	if err := h.moderation.Reactivate(c.Request.Context(), currentUserID(c), targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": targetID, "status": "active"})
}

// Delete removes the target account permanently.
func (h *AdminAccountHandler) Delete(c *gin.Context) {
	targetID := c.Param("id")
	if err := h.moderation.Delete(c.Request.Context(), currentUserID(c), targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": targetID, "deleted": true})
}

type setRolesRequest struct {
	RoleIDs []string `json:"role_ids" validate:"required"`
}

// SetRoles replaces the target account's role assignments.
func (h *AdminAccountHandler) SetRoles(c *gin.Context) {
	var req setRolesRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetRoles(c.Request.Context(), c.Param("id"), req.RoleIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Impersonate issues a short-lived token pair for the target account.
func (h *AdminAccountHandler) Impersonate(c *gin.Context) {
	callerID := currentUserID(c)
	if callerID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	result, err := h.moderation.Impersonate(c.Request.Context(), callerID, c.Param("id"), sessionMetadata(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":          result.Target,
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"session_id":    result.SessionID,
		"impersonated":  true,
	})
}
