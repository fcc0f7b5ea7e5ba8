package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.FullPath()))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: "Ocurrió un error inesperado. Intente nuevamente.",
					Code:  CodeInternal,
				})
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, code, message string) {
	logger := GetLogger()
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.String("code", code), zap.String("path", c.FullPath()))
	} else {
		logger.Warn(message, zap.String("code", code), zap.String("path", c.FullPath()))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

// ServiceError is a domain failure that reaches the client with a machine code.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewServiceError(code, message string) error {
	return &ServiceError{Code: code, Message: message}
}

// AsServiceError unwraps err into a *ServiceError, if it is one.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// StatusForCode maps an error code onto its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case CodeValidation, CodeSessionInvalid, CodeSessionExpired, CodeOTPInvalid, CodeOTPExpired, CodeOTPLocked:
		return http.StatusBadRequest
	case CodeSlotUnavailable:
		return http.StatusConflict
	case CodeBusinessUnavailable:
		return http.StatusPaymentRequired
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as an error body. Errors that are not a *ServiceError
// are logged and reported as internal.
func RespondError(c *gin.Context, err error) {
	if se, ok := AsServiceError(err); ok {
		JSONError(c, StatusForCode(se.Code), se.Code, se.Message)
		return
	}
	GetLogger().Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: "Ocurrió un error inesperado. Intente nuevamente.",
		Code:  CodeInternal,
	})
}
