package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/permissions"
	"github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/metrics"
	"github.com/barberhq/barberhq/pkg/response"
)

// RequirePermission checks that the authenticated user has the provided permission ID.
func RequirePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		userID, _ := v.(string)
		allowed, err := checker.Check(c.Request.Context(), userID, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": errors.ErrInternalServer.Code, "message": "permission check failed"}})
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionID, "allowed").Inc()
		c.Next()
	}
}

// RequireSuperAdmin gates platform moderation endpoints. Failures answer with
// the flat admin error shape rather than the standard envelope.
func RequireSuperAdmin(checker *permissions.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized: Admin access required",
			})
			return
		}
		userID, _ := v.(string)
		allowed, err := checker.IsSuperAdmin(c.Request.Context(), userID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissions.SuperAdmin, "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "permission check failed",
			})
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissions.SuperAdmin, "denied").Inc()
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Unauthorized: Admin access required",
			})
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissions.SuperAdmin, "allowed").Inc()
		c.Next()
	}
}
