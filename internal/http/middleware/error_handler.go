package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/warmconnects-backend/internal/dto"
	"github.com/ignatzorin/warmconnects-backend/internal/logger"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// ErrorHandler превращает ошибку, записанную хэндлером через c.Error, в JSON ответ.
// Ошибки приложения отдаются с их кодом и сообщением, остальные маскируются как внутренние.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		writeError(c, c.Errors.Last().Err)
	}
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

func writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)

	entry := logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"status": status,
		"code":   body.Code,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("ошибка обработки запроса")
	} else {
		entry.Debug("запрос отклонён")
	}

	c.JSON(status, body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := appErr.Message
		if appErr.Code == apperror.ErrCodeInternal {
			message = "внутренняя ошибка сервера"
		}
		return status, dto.ErrorResponse{Error: message, Code: string(appErr.Code)}
	}
	return http.StatusInternalServerError, dto.ErrorResponse{
		Error: "внутренняя ошибка сервера",
		Code:  string(apperror.ErrCodeInternal),
	}
}
