package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mapguess-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// retryAfterSeconds - подсказка клиенту при недоступности провайдера.
const retryAfterSeconds = 5

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	detail := err.Error()

	switch {
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidState):
		statusCode = http.StatusConflict
	case errors.Is(err, models.ErrUpstreamUnavailable):
		statusCode = http.StatusServiceUnavailable
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		detail = "Similarity provider is temporarily unavailable, please retry"
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		detail = "An unexpected internal error occurred"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{Detail: detail})
}

// handleBindError превращает ошибку биндинга/валидации запроса в 400.
func handleBindError(c *gin.Context, err error) {
	handleServiceError(c, fmt.Errorf("%w: %s", models.ErrInvalidInput, describeValidationError(err)))
}
