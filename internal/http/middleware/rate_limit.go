package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/warmconnects-backend/internal/dto"
	"github.com/ignatzorin/warmconnects-backend/internal/logger"
)

const codeRateLimited = "RATE_LIMITED"

// RateLimitMiddleware ограничивает частоту запросов. Авторизованные пользователи
// считаются по userID, остальные по IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if raw, ok := c.Get(ContextUserIDKey); ok {
			if id, ok := raw.(uuid.UUID); ok {
				key = "user:" + id.String()
			}
		}

		lctx, err := instance.Get(c, key)
		if err != nil {
			// при сбое лимитера запрос пропускаем
			logger.L().WithError(err).Warn("rate limiter недоступен")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error: "слишком много запросов, попробуйте позже",
				Code:  codeRateLimited,
			})
			return
		}
		c.Next()
	}
}
