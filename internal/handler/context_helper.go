package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/openagora/agora-api/internal/middleware"
	"github.com/openagora/agora-api/internal/models"
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
