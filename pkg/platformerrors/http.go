package platformerrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse represents the standard error response format.
// Success and Message mirror the envelope successful responses use.
type HTTPErrorResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Error   *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response and aborts the chain.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	LogError(log, err)

	requestID := err.RequestID
	if requestID == "" {
		requestID = RequestIDFromContext(c.Request.Context())
	}

	c.AbortWithStatusJSON(ErrorTypeToHTTPStatus(err.Type), HTTPErrorResponse{
		Message: err.Message,
		Error: &HTTPErrorDetail{
			Message:   err.Message,
			Type:      errorTypeToString(err.Type),
			Code:      err.UUID,
			RequestID: requestID,
		},
	})
}

// WriteError writes a generic error as an HTTP response.
// Anything that is not a PlatformError is reported as an internal error without its details.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	if platformErr := GetPlatformError(err); platformErr != nil {
		WriteHTTPError(c, platformErr, log)
		return
	}

	log.Error().Err(err).Str("request_id", RequestIDFromContext(c.Request.Context())).Msg("unhandled error")
	WriteInternalError(c, "Internal server error")
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, ErrorTypeValidation, message)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, ErrorTypeUnauthorized, message)
}

// WriteRateLimited writes a 429 Too Many Requests response.
func WriteRateLimited(c *gin.Context, message string) {
	write(c, http.StatusTooManyRequests, ErrorTypeRateLimited, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(c *gin.Context, message string) {
	write(c, http.StatusInternalServerError, ErrorTypeInternal, message)
}

// WriteStatus writes an error envelope with an explicit status, for statuses no ErrorType maps to.
func WriteStatus(c *gin.Context, status int, errorType ErrorType, message string) {
	write(c, status, errorType, message)
}

func write(c *gin.Context, status int, errorType ErrorType, message string) {
	c.AbortWithStatusJSON(status, HTTPErrorResponse{
		Message: message,
		Error: &HTTPErrorDetail{
			Message:   message,
			Type:      errorTypeToString(errorType),
			RequestID: RequestIDFromContext(c.Request.Context()),
		},
	})
}

// errorTypeToString converts an ErrorType to a snake_case string for API responses.
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeUnauthorized:
		return "unauthorized_error"
	case ErrorTypeForbidden:
		return "forbidden_error"
	case ErrorTypeRateLimited:
		return "rate_limited_error"
	case ErrorTypePayloadTooLarge:
		return "payload_too_large_error"
	case ErrorTypeExternal:
		return "upstream_unavailable_error"
	default:
		return "internal_error"
	}
}
