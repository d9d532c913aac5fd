package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
)

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapError translates signing errors to HTTP status codes
func MapError(err error) (status int, code string) {
	t := pdferrors.TypeOf(err)
	switch t {
	case pdferrors.ErrorTypeInvalidInput:
		return http.StatusBadRequest, t.String()
	case pdferrors.ErrorTypeSourceUnreadable, pdferrors.ErrorTypeDetectionFailed:
		return http.StatusUnprocessableEntity, t.String()
	case pdferrors.ErrorTypeOutputNotWritable:
		return http.StatusForbidden, t.String()
	case pdferrors.ErrorTypeAssetMissing, pdferrors.ErrorTypeRendererMissing, pdferrors.ErrorTypeWriteFailed:
		return http.StatusInternalServerError, t.String()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// HandleError maps err and sends the error response. Server-side failures
// are logged with the request ID.
func HandleError(c *gin.Context, err error) {
	status, code := MapError(err)
	if status >= http.StatusInternalServerError {
		requestID, _ := c.Get(requestIDKey)
		log.Printf("[%s] %s %s: %v", requestID, c.Request.Method, c.Request.URL.Path, err)
	}
	RespondError(c, status, code, err.Error())
}
