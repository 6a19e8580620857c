package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/response"
)

// InviteHandler exposes the barber invitation lifecycle. Accept is public:
// the token alone authenticates the request.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type createInviteRequest struct {
	StoreID    string `json:"store_id" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	BarberName string `json:"barber_name" validate:"required,max=128"`
	Specialty  string `json:"specialty" validate:"max=128"`
}

// Create issues a new invitation and returns the raw token once.
func (h *InviteHandler) Create(c *gin.Context) {
	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.invites.Create(c.Request.Context(), currentUserID(c), services.CreateInviteInput{
		StoreID:    req.StoreID,
		Email:      req.Email,
		BarberName: req.BarberName,
		Specialty:  req.Specialty,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"invitation": result.Invitation,
		"token":      result.Token,
	})
}

// List returns a store's invitations.
func (h *InviteHandler) List(c *gin.Context) {
	invites, err := h.invites.ListByStore(c.Request.Context(), currentUserID(c), c.Query("store_id"), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"invitations": invites})
}

// Resend rotates the invitation token and extends the expiry.
func (h *InviteHandler) Resend(c *gin.Context) {
	result, err := h.invites.Resend(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"invitation": result.Invitation,
		"token":      result.Token,
	})
}

// Revoke cancels a pending invitation.
func (h *InviteHandler) Revoke(c *gin.Context) {
	if err := h.invites.Revoke(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

type acceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

// Accept redeems an invitation token and creates the barber record.
func (h *InviteHandler) Accept(c *gin.Context) {
	var req acceptInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	barber, err := h.invites.Accept(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"barber": barber})
}
