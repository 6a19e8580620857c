package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
)

// AdminWorkstationHandler serves the action-envelope workstation endpoint:
// a single POST whose body selects the operation. Unlike the rest of the API
// this surface answers with a flat {success, data, error} shape where error is
// a plain string, kept for compatibility with the admin dashboard client.
type AdminWorkstationHandler struct {
	workstations *services.WorkstationService
}

// NewAdminWorkstationHandler constructs an AdminWorkstationHandler.
func NewAdminWorkstationHandler(workstations *services.WorkstationService) *AdminWorkstationHandler {
	return &AdminWorkstationHandler{workstations: workstations}
}

type adminWorkstationRequest struct {
	Action string                  `json:"action" binding:"required"`
	Data   adminWorkstationPayload `json:"data"`
}

type adminWorkstationPayload struct {
	ID              string `json:"id"`
	StoreID         string `json:"store_id"`
	Number          string `json:"number"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	DiscountPercent *int   `json:"discount_percent"`
}

// Handle dispatches on the action field.
func (h *AdminWorkstationHandler) Handle(c *gin.Context) {
	var req adminWorkstationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		flatError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	callerID := currentUserID(c)

	switch req.Action {
	case "create":
		discount := 0
		if req.Data.DiscountPercent != nil {
			discount = *req.Data.DiscountPercent
		}
		ws, err := h.workstations.Create(c.Request.Context(), callerID, services.CreateWorkstationInput{
			StoreID:         req.Data.StoreID,
			Number:          req.Data.Number,
			Type:            req.Data.Type,
			DiscountPercent: discount,
		})
		if err != nil {
			flatServiceError(c, err)
			return
		}
		flatSuccess(c, ws)

	case "update":
		input := services.UpdateWorkstationInput{
			DiscountPercent: req.Data.DiscountPercent,
		}
		if req.Data.Number != "" {
			input.Number = &req.Data.Number
		}
		if req.Data.Type != "" {
			input.Type = &req.Data.Type
		}
		if req.Data.Status != "" {
			input.Status = &req.Data.Status
		}
		ws, err := h.workstations.Update(c.Request.Context(), callerID, req.Data.ID, input)
		if err != nil {
			flatServiceError(c, err)
			return
		}
		flatSuccess(c, ws)

	case "delete":
		if err := h.workstations.Delete(c.Request.Context(), callerID, req.Data.ID); err != nil {
			flatServiceError(c, err)
			return
		}
		flatSuccess(c, gin.H{"id": req.Data.ID, "deleted": true})

	case "getWorkstations":
		var (
			stations any
			err      error
		)
		if req.Data.StoreID != "" {
			stations, err = h.workstations.ListByStore(c.Request.Context(), req.Data.StoreID)
		} else {
			stations, err = h.workstations.ListOwned(c.Request.Context(), callerID)
		}
		if err != nil {
			flatServiceError(c, err)
			return
		}
		flatSuccess(c, stations)

	default:
		flatError(c, http.StatusBadRequest, "Unknown action: "+req.Action)
	}
}

func flatSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func flatError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func flatServiceError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	flatError(c, status, appErr.Message)
}
