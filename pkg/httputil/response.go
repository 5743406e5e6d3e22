package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-portal/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

// RespondWithStatus sends a success response with the given status
func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response. Errors that are not AppErrors
// are reported as internal errors without their message.
func RespondWithError(c *gin.Context, err error) {
	RespondWithErrorDetails(c, err, nil)
}

// RespondWithErrorDetails is RespondWithError with a details payload
func RespondWithErrorDetails(c *gin.Context, err error, details interface{}) {
	appErr := errors.As(err)
	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    status,
			Message: appErr.Message,
			Details: details,
		},
	})
}
