package handler

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	validation "github.com/go-ozzo/ozzo-validation"
	"net/http"
)

type ErrorCode string

const (
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeInvalidBody      ErrorCode = "INVALID_BODY"
	CodeUpstreamError    ErrorCode = "UPSTREAM_ERROR"
	CodeUpstreamTimeout  ErrorCode = "UPSTREAM_TIMEOUT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeArchiveDisabled  ErrorCode = "ARCHIVE_DISABLED"
	CodeCancelled        ErrorCode = "REQUEST_CANCELLED"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is reported when the caller went away before the
// report was ready.
const StatusClientClosedRequest = 499

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// requestError is a malformed request detected by a handler before the
// service is called.
type requestError struct {
	code    ErrorCode
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func invalidBody(message string) error {
	return &requestError{code: CodeInvalidBody, message: message}
}

func WriteError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status, response := mapError(err)

	switch {
	case status == http.StatusInternalServerError:
		logger.Error("request failed",
			"error", err.Error(),
			"code", response.Error.Code,
		)
	case status == StatusClientClosedRequest:
		logger.Info("request cancelled by client", "error", err.Error())
	default:
		logger.Warn("domain error",
			"error", err.Error(),
			"code", response.Error.Code,
		)
	}

	writeJSON(w, status, response, logger)
}

func mapError(err error) (int, ErrorResponse) {
	var reqErr *requestError

	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, errorResponse(reqErr.code, reqErr.message)

	case errors.Is(err, domain.ErrValidation):
		response := errorResponse(CodeValidationFailed, domain.ErrValidation.Error())
		response.Error.Details = validationDetails(err)
		return http.StatusBadRequest, response

	case errors.Is(err, domain.ErrReportNotFound):
		return http.StatusNotFound, errorResponse(CodeNotFound, domain.ErrReportNotFound.Error())

	case errors.Is(err, domain.ErrArchiveDisabled):
		return http.StatusNotFound, errorResponse(CodeArchiveDisabled, domain.ErrArchiveDisabled.Error())

	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, errorResponse(CodeCancelled, "request cancelled")

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse(CodeUpstreamTimeout,
			"the changelog report was not ready within the request timeout")

	case errors.Is(err, domain.ErrUpstream):
		return http.StatusInternalServerError, errorResponse(CodeUpstreamError,
			"an error occurred while generating the changelog report")

	default:
		return http.StatusInternalServerError, errorResponse(CodeInternal, "internal server error")
	}
}

func errorResponse(code ErrorCode, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// validationDetails flattens ozzo field errors into field -> reason.
func validationDetails(err error) map[string]string {
	var fields validation.Errors
	if !errors.As(err, &fields) {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return map[string]string{"request": validationErr.Err.Error()}
		}
		return nil
	}

	details := make(map[string]string, len(fields))
	for field, fieldErr := range fields {
		if fieldErr != nil {
			details[field] = fieldErr.Error()
		}
	}
	return details
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
