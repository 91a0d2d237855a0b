package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError maps domain errors onto HTTP status codes. Losing a
// race and being ineligible are expected outcomes, not server faults,
// and each keeps its own user-facing message.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case errors.ErrNotFound:
			statusCode = http.StatusNotFound
		case errors.ErrBadRequest, errors.ErrInvalidCoordinate:
			statusCode = http.StatusBadRequest
		case errors.ErrInvalidTransition, errors.ErrAlreadyAssigned,
			errors.ErrExpired, errors.ErrCancelled:
			statusCode = http.StatusConflict
		case errors.ErrIneligible:
			statusCode = http.StatusForbidden
		}
	}

	c.JSON(statusCode, Response{
		Status:  "error",
		Message: message,
	})
}
