// Package httputil writes the JSON envelopes shared by every endpoint and
// decodes request bodies.
//
// Success: {"message": ..., "data": ..., "timestamp": ...}
// Error:   {"message": ..., "errors": [...], "code": ...}
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "donorhub/pkg/domain-errors"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// SuccessResponse is the envelope for 2xx responses.
type SuccessResponse struct {
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the envelope for 4xx/5xx responses.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
	Code    string   `json:"code"`
}

// Normalizer is implemented by requests that trim or lowercase input before validation.
type Normalizer interface {
	Normalize()
}

// Validatable is implemented by requests that check their own shape.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess wraps data in the success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, SuccessResponse{
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// WriteError translates err into the error envelope. Errors without a domain
// code become 500s with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := dErrors.MessageOf(err)
	fields := dErrors.FieldsOf(err)
	if len(fields) == 0 {
		fields = []string{message}
	}
	WriteJSON(w, StatusFor(code), ErrorResponse{
		Message: message,
		Errors:  fields,
		Code:    string(publicCode(code)),
	})
}

// StatusFor maps a domain code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput,
		dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicCode folds internal-only codes into the codes clients see.
func publicCode(code dErrors.Code) dErrors.Code {
	switch code {
	case dErrors.CodeInvalidInput:
		return dErrors.CodeBadRequest
	case dErrors.CodeInvariantViolation:
		return dErrors.CodeValidation
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeUnauthorized,
		dErrors.CodeForbidden, dErrors.CodeNotFound, dErrors.CodeConflict:
		return code
	default:
		return dErrors.CodeInternal
	}
}

// DecodeAndPrepare decodes the JSON body into T, then runs Normalize and
// Validate when T implements them. On failure it writes the error response and
// returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return nil, false
	}

	if n, ok := any(&req).(Normalizer); ok {
		n.Normalize()
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.InfoContext(ctx, "request validation failed",
				"error", err,
				"request_id", requestID,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
