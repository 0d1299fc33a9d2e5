package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Database - то, что health check знает о пуле соединений.
type Database interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// HealthHandler отвечает на GET /health. Сервис недоступен, если не прошла хотя бы одна
// обязательная проверка. Предупреждения статус не меняют.
type HealthHandler struct {
	db      Database
	timeout time.Duration
}

func NewHealthHandler(db Database) *HealthHandler {
	return &HealthHandler{db: db, timeout: 3 * time.Second}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Timestamp: time.Now().UTC(), Checks: map[string]string{}}

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Checks["postgres"] = "down"
	} else {
		resp.Checks["postgres"] = "up"
	}

	// пул исчерпан: запросы ждут соединения
	pool := h.db.Stats()
	switch {
	case pool.MaxOpenConnections > 0 && pool.InUse >= pool.MaxOpenConnections:
		resp.Checks["postgres_pool"] = "exhausted"
	case pool.WaitCount > 0:
		resp.Checks["postgres_pool"] = "waiting"
	default:
		resp.Checks["postgres_pool"] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
