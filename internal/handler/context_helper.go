package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stp-api/internal/middleware"
	"github.com/noah-isme/stp-api/internal/models"
)

// claimsFromContext returns the authenticated claims, or nil when the
// request skipped the JWT middleware.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
