package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/pkg/logger"
	"github.com/prohmpiriya/event-booking/pkg/middleware"
	"github.com/prohmpiriya/event-booking/pkg/response"
	"go.uber.org/zap"
)

// retryAfterSeconds is sent with 503 responses for retryable store failures
const retryAfterSeconds = "1"

// handleError maps service errors to HTTP responses
func handleError(c *gin.Context, err error) {
	var inv *domain.InsufficientInventoryError

	switch {
	case errors.As(err, &inv):
		c.JSON(http.StatusConflict, response.ErrorWithDetails(
			response.ErrCodeInsufficientInventory,
			err.Error(),
			gin.H{"available": inv.Available, "requested": inv.Requested},
		))
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, response.NotFound(err.Error()))
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, response.ValidationError(err.Error(), nil))
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Forbidden("you do not have access to this resource"))
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Unauthorized(err.Error()))
	case errors.Is(err, domain.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, response.Conflict(err.Error()))
	case errors.Is(err, domain.ErrTransientStore):
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("the request could not be completed, please retry"))
	default:
		logger.Get().ErrorContext(c.Request.Context(), "unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError("internal server error"))
	}
}

// bindError reports a request body or query that could not be parsed
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, response.ValidationError("invalid request", details))
		return
	}
	c.JSON(http.StatusBadRequest, response.BadRequest("invalid request: "+err.Error()))
}

// actorFromContext builds the caller identity set by the JWT middleware
func actorFromContext(c *gin.Context) (domain.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		return domain.Actor{}, false
	}
	return domain.Actor{
		ID:   userID,
		Role: middleware.GetUserRole(c),
		Name: middleware.GetUserName(c),
	}, true
}

func requireActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("authentication required"))
	}
	return actor, ok
}
