package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-marketplace/internal/api/shared/errors"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.ErrorResponse{Error: apierrors.NewBadRequestError(message, details...)})
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.ErrorResponse{Error: apierrors.NewValidationError(details...)})
}

// respondError maps a service error to its status code and error body
func respondError(c *gin.Context, err error) {
	status, apiErr := apierrors.FromError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.FullPath()))
	}
	c.JSON(status, apierrors.ErrorResponse{Error: apiErr})
}
