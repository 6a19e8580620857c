package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/response"
)

// AdminAuditHandler lets admins inspect the audit trail.
type AdminAuditHandler struct {
	audit *services.AuditService
}

// NewAdminAuditHandler constructs an AdminAuditHandler.
func NewAdminAuditHandler(audit *services.AuditService) *AdminAuditHandler {
	return &AdminAuditHandler{audit: audit}
}

// List returns paginated audit log entries with optional filters.
func (h *AdminAuditHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	logs, total, err := h.audit.List(c.Request.Context(), services.AuditListOptions{
		Page:     page,
		PageSize: perPage,
		Filters: services.AuditFilters{
			UserID:   c.Query("user_id"),
			Action:   c.Query("action"),
			Result:   c.Query("result"),
			Resource: c.Query("resource"),
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

	response.SuccessWithMeta(c, http.StatusOK, gin.H{"logs": logs}, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: totalPages,
	})
}
