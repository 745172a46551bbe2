package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusTokenExpired is the client status the original service reserved for
// invalid-or-expired password-reset tokens, kept for API compatibility.
const StatusTokenExpired = 489

// Envelope is the uniform success shape: success mirrors statusCode < 400.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope adds the field-error list; data is always null on failure.
type ErrorEnvelope struct {
	StatusCode int          `json:"statusCode"`
	Data       any          `json:"data"`
	Message    string       `json:"message"`
	Success    bool         `json:"success"`
	Errors     []FieldError `json:"errors"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func Respond(ctx *gin.Context, status int, data any, message string) {
	ctx.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	})
}

func RespondError(ctx *gin.Context, status int, message string, errs []FieldError) {
	if errs == nil {
		errs = []FieldError{}
	}

	ctx.JSON(status, ErrorEnvelope{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Success:    false,
		Errors:     errs,
	})
}

func RespondBadRequest(ctx *gin.Context, message string, errs []FieldError) {
	RespondError(ctx, http.StatusBadRequest, message, errs)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message, nil)
}
