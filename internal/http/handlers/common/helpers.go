package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/warmconnects-backend/internal/http/middleware"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// Actor - текущий пользователь запроса.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// CurrentActor извлекает пользователя и роль, которые положил AuthMiddleware.
func CurrentActor(c *gin.Context) (Actor, error) {
	rawID, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return Actor{}, apperror.ErrUnauthorized
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return Actor{}, apperror.ErrUnauthorized
	}

	role, _ := c.Get(middleware.ContextRoleKey)
	roleStr, _ := role.(string)
	return Actor{ID: userID, Role: roleStr}, nil
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeValidation, "параметр %s должен быть валидным UUID", paramName)
	}
	return parsed, nil
}

// ParseUUID разбирает UUID из поля тела запроса.
func ParseUUID(field, raw string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeValidation, "поле %s должно быть валидным UUID", field)
	}
	return parsed, nil
}

// BindJSON читает тело запроса и превращает ошибку биндинга в ошибку валидации.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса")
	}
	return nil
}

// Fail передаёт ошибку в ErrorHandler. После вызова хэндлер должен вернуться.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// ParseIntQuery читает целый query-параметр, при ошибке возвращает fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination извлекает limit и offset из query с дефолтами.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
