package handlers

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/middleware"
)

// currentUserID extracts the authenticated user's ID from the gin context.
func currentUserID(c *gin.Context) string {
	if id, ok := c.Get(middleware.CtxUserIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func currentSessionID(c *gin.Context) string {
	if id, ok := c.Get(middleware.CtxSessionIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func currentClaims(c *gin.Context) *iauth.Claims {
	if v, ok := c.Get(middleware.CtxClaimsKey); ok {
		if claims, ok := v.(*iauth.Claims); ok {
			return claims
		}
	}
	return nil
}

// sessionMetadata builds SessionMetadata from the incoming request.
func sessionMetadata(c *gin.Context) iauth.SessionMetadata {
	return iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
