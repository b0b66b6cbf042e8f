package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/middleware"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
)

func sessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return nil
	}
	sess, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return sess
}
