package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/response"
)

// WorkstationHandler exposes workstation CRUD and barber assignment.
type WorkstationHandler struct {
	workstations *services.WorkstationService
}

// NewWorkstationHandler constructs a WorkstationHandler.
func NewWorkstationHandler(workstations *services.WorkstationService) *WorkstationHandler {
	return &WorkstationHandler{workstations: workstations}
}

type createWorkstationRequest struct {
	StoreID         string `json:"store_id" validate:"required"`
	Number          string `json:"number" validate:"required,max=16"`
	Type            string `json:"type" validate:"omitempty,oneof=standard premium vip"`
	DiscountPercent int    `json:"discount_percent" validate:"min=0,max=100"`
}

// Create adds a workstation to one of the caller's stores.
func (h *WorkstationHandler) Create(c *gin.Context) {
	var req createWorkstationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ws, err := h.workstations.Create(c.Request.Context(), currentUserID(c), services.CreateWorkstationInput{
		StoreID:         req.StoreID,
		Number:          req.Number,
		Type:            req.Type,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, ws)
}

// List returns workstations for a store (store_id query) or across the
// caller's stores.
func (h *WorkstationHandler) List(c *gin.Context) {
	if storeID := c.Query("store_id"); storeID != "" {
		stations, err := h.workstations.ListByStore(c.Request.Context(), storeID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"workstations": stations})
		return
	}

	stations, err := h.workstations.ListOwned(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"workstations": stations})
}

// Get loads a single workstation.
func (h *WorkstationHandler) Get(c *gin.Context) {
	ws, err := h.workstations.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ws)
}

type updateWorkstationRequest struct {
	Number          *string `json:"number" validate:"omitempty,max=16"`
	Type            *string `json:"type" validate:"omitempty,oneof=standard premium vip"`
	Status          *string `json:"status" validate:"omitempty,oneof=available occupied maintenance"`
	DiscountPercent *int    `json:"discount_percent" validate:"omitempty,min=0,max=100"`
}

// Update mutates a workstation in one of the caller's stores.
func (h *WorkstationHandler) Update(c *gin.Context) {
	var req updateWorkstationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ws, err := h.workstations.Update(c.Request.Context(), currentUserID(c), c.Param("id"), services.UpdateWorkstationInput{
		Number:          req.Number,
		Type:            req.Type,
		Status:          req.Status,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, ws)
}

type assignBarberRequest struct {
	BarberID string `json:"barber_id" validate:"required"`
}

// AssignBarber seats a barber at the workstation.
func (h *WorkstationHandler) AssignBarber(c *gin.Context) {
	var req assignBarberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ws, err := h.workstations.AssignBarber(c.Request.Context(), currentUserID(c), c.Param("id"), req.BarberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, ws)
}

// ReleaseBarber frees the workstation.
func (h *WorkstationHandler) ReleaseBarber(c *gin.Context) {
	ws, err := h.workstations.ReleaseBarber(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ws)
}

// Delete removes a workstation.
func (h *WorkstationHandler) Delete(c *gin.Context) {
	if err := h.workstations.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
