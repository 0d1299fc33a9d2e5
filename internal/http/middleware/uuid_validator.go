package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметры пути с указанными именами - валидные UUID.
// Использование: router.GET("/orders/:id", UUIDValidator("id"), handler.GetOrder)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range paramNames {
			raw := c.Param(name)
			if raw == "" {
				abortWithError(c, apperror.Newf(apperror.ErrCodeValidation, "параметр %s обязателен", name))
				return
			}
			if _, err := uuid.Parse(raw); err != nil {
				abortWithError(c, apperror.Newf(apperror.ErrCodeValidation, "параметр %s должен быть валидным UUID", name))
				return
			}
		}
		c.Next()
	}
}
