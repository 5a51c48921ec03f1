// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"
	"time"

	xerrors "mailadmin-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Response defines the standard API envelope.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Errors    []ErrorItem `json:"errors,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorItem describes one failure inside an error envelope.
type ErrorItem struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

var now = time.Now

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: now(),
	})
}

// Error aborts the request and writes an error envelope.
func Error(c *gin.Context, status int, message string, items ...ErrorItem) {
	c.Abort()
	c.JSON(status, Response{
		Success:   false,
		Message:   message,
		Errors:    items,
		Timestamp: now(),
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind xerrors.Kind) int {
	switch kind {
	case xerrors.KindValidation:
		return http.StatusBadRequest
	case xerrors.KindConflict:
		return http.StatusConflict
	case xerrors.KindAuthentication, xerrors.KindTokenMissing, xerrors.KindTokenInvalid,
		xerrors.KindTokenExpired, xerrors.KindTokenTypeMismatch, xerrors.KindTokenMismatch,
		xerrors.KindSessionInactive:
		return http.StatusUnauthorized
	case xerrors.KindForbidden:
		return http.StatusForbidden
	case xerrors.KindNotFound:
		return http.StatusNotFound
	case xerrors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err as an error envelope. Errors without a kind are reported
// as internal and their text is not exposed.
func FromError(c *gin.Context, err error) {
	appErr, ok := xerrors.As(err)
	if !ok {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, xerrors.ErrInternal.Message, ErrorItem{
			Code:      string(xerrors.KindInternal),
			Message:   xerrors.ErrInternal.Message,
			Timestamp: now(),
		})
		return
	}

	status := StatusFor(appErr.Kind)
	message := appErr.Message
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = xerrors.ErrInternal.Message
	}
	Error(c, status, message, ErrorItem{
		Code:      string(appErr.Kind),
		Message:   message,
		Details:   appErr.Details,
		Timestamp: now(),
	})
}

// ValidationError reports a binding failure, one item per invalid field when available.
func ValidationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Error(c, http.StatusBadRequest, "Invalid request body", ErrorItem{
			Code:      string(xerrors.KindValidation),
			Message:   err.Error(),
			Timestamp: now(),
		})
		return
	}

	items := make([]ErrorItem, 0, len(verrs))
	for _, fe := range verrs {
		items = append(items, ErrorItem{
			Code:    string(xerrors.KindValidation),
			Message: fieldMessage(fe),
			Details: map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
			},
			Timestamp: now(),
		})
	}
	Error(c, http.StatusBadRequest, "Validation failed", items...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}
