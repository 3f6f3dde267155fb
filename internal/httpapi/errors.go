package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// errorBody is the error envelope of every non-2xx catalog response.
type errorBody struct {
	Detail any `json:"detail"`
}

func writeValidation(c *gin.Context, errs validation.Errors) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorBody{Detail: errs})
}

func writeError(c *gin.Context, kind string, err error) {
	switch {
	case catalog.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Detail: kind + " not found"})
	case catalog.IsInvalidQuery(err):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorBody{Detail: err.Error()})
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful can be written
		c.Abort()
	case errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, errorBody{Detail: "request timed out"})
	case catalog.IsBackendUnavailable(err):
		loggerFrom(c).Error("search backend failed", slog.String("kind", kind), slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Detail: "search backend unavailable"})
	default:
		loggerFrom(c).Error("request failed", slog.String("kind", kind), slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Detail: "internal server error"})
	}
}
