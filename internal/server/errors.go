package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	compliancedomain "github.com/smallbiznis/fatoora/internal/compliance/domain"
	organizationdomain "github.com/smallbiznis/fatoora/internal/organization/domain"
	"github.com/smallbiznis/fatoora/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Authority json.RawMessage   `json:"authority,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var rejection *compliancedomain.RejectionError
	if errors.As(err, &rejection) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:      "authority_rejected",
			Message:   "the tax authority rejected the submission",
			Authority: json.RawMessage(rejection.Body),
		}
	}

	switch {
	case errors.Is(err, compliancedomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}
	case errors.Is(err, compliancedomain.ErrConfigurationMissing):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "configuration_missing",
			Message: err.Error(),
		}
	case errors.Is(err, compliancedomain.ErrInvalidInvoiceType),
		errors.Is(err, compliancedomain.ErrEncodingViolation),
		errors.Is(err, organizationdomain.ErrInvalidID),
		errors.Is(err, organizationdomain.ErrInvalidName):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, compliancedomain.ErrDisabled):
		return http.StatusForbidden, errorPayload{
			Type:    "compliance_disabled",
			Message: err.Error(),
		}
	case errors.Is(err, compliancedomain.ErrCredentialMissing),
		errors.Is(err, compliancedomain.ErrInvalidTransition),
		errors.Is(err, compliancedomain.ErrChainConflict),
		db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, compliancedomain.ErrAuthorityRejected):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "authority_rejected",
			Message: err.Error(),
		}
	case errors.Is(err, compliancedomain.ErrTransportFailure):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "the tax authority is unreachable",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog tags access-log entries with the taxonomy bucket the
// handler error belongs to.
func classifyErrorForLog(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, compliancedomain.ErrAuthorityRejected):
		return "authority_rejected"
	case errors.Is(err, compliancedomain.ErrTransportFailure):
		return "transport_failure"
	case errors.Is(err, compliancedomain.ErrChainConflict):
		return "chain_conflict"
	case errors.Is(err, compliancedomain.ErrCredentialMissing):
		return "credential_missing"
	case errors.Is(err, compliancedomain.ErrConfigurationMissing):
		return "configuration_missing"
	case errors.Is(err, compliancedomain.ErrDisabled):
		return "compliance_disabled"
	default:
		return ""
	}
}
