package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/response"
)

// BarberHandler exposes barber CRUD for store owners.
type BarberHandler struct {
	barbers *services.BarberService
}

// NewBarberHandler constructs a BarberHandler.
func NewBarberHandler(barbers *services.BarberService) *BarberHandler {
	return &BarberHandler{barbers: barbers}
}

type createBarberRequest struct {
	StoreID     string `json:"store_id" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,max=128"`
	Email       string `json:"email" validate:"omitempty,email"`
	Specialty   string `json:"specialty" validate:"max=128"`
}

// Create adds a barber to one of the caller's stores.
func (h *BarberHandler) Create(c *gin.Context) {
	var req createBarberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	barber, err := h.barbers.Create(c.Request.Context(), currentUserID(c), services.CreateBarberInput{
		StoreID:     req.StoreID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Specialty:   req.Specialty,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, barber)
}

// List returns a store's barbers.
func (h *BarberHandler) List(c *gin.Context) {
	barbers, err := h.barbers.ListByStore(c.Request.Context(), c.Query("store_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"barbers": barbers})
}

// Get loads a single barber.
func (h *BarberHandler) Get(c *gin.Context) {
	barber, err := h.barbers.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, barber)
}

type updateBarberRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=128"`
	Specialty   *string `json:"specialty" validate:"omitempty,max=128"`
	IsActive    *bool   `json:"is_active"`
}

// Update mutates a barber in one of the caller's stores.
func (h *BarberHandler) Update(c *gin.Context) {
	var req updateBarberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	barber, err := h.barbers.Update(c.Request.Context(), currentUserID(c), c.Param("id"), services.UpdateBarberInput{
		DisplayName: req.DisplayName,
		Specialty:   req.Specialty,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, barber)
}

// Delete removes a barber and releases any workstation assignment.
func (h *BarberHandler) Delete(c *gin.Context) {
	if err := h.barbers.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
