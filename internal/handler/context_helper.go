package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hakplan/roster-api/internal/middleware"
	"github.com/hakplan/roster-api/internal/models"
)

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

func roleFromContext(c *gin.Context) models.UserRole {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.Role
}
