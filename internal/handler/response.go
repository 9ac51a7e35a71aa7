package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Code      string            `json:"code,omitempty"`
	ErrorCode int               `json:"errorCode,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation         = "https://bazaar.app/errors/validation"
	ErrorTypeSettlement         = "https://bazaar.app/errors/settlement"
	ErrorTypeNotFound           = "https://bazaar.app/errors/not-found"
	ErrorTypeUnauthorized       = "https://bazaar.app/errors/unauthorized"
	ErrorTypeConflict           = "https://bazaar.app/errors/conflict"
	ErrorTypePreconditionFailed = "https://bazaar.app/errors/precondition-failed"
	ErrorTypeInternal           = "https://bazaar.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewSettlementError reports a payment the settlement program rejected
func NewSettlementError(c echo.Context, status int, se *domain.SettlementError, detail string) error {
	return c.JSON(status, ProblemDetails{
		Type:      ErrorTypeSettlement,
		Title:     se.Code,
		Status:    status,
		Detail:    detail,
		Instance:  c.Request().URL.Path,
		Code:      se.Code,
		ErrorCode: se.Number,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, ProblemDetails{
		Type:     ErrorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return c.JSON(http.StatusConflict, ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewPreconditionFailedError reports that the program has not been initialized
func NewPreconditionFailedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusPreconditionFailed, ProblemDetails{
		Type:     ErrorTypePreconditionFailed,
		Title:    "Precondition Failed",
		Status:   http.StatusPreconditionFailed,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// handleServiceError maps ledger and settlement errors to responses
func handleServiceError(c echo.Context, err error) error {
	if se, ok := domain.AsSettlementError(err); ok {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrOrderIDAlreadyUsed) {
			status = http.StatusConflict
		}
		return NewSettlementError(c, status, se, err.Error())
	}

	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		return NewPreconditionFailedError(c, "Settlement program is not initialized")
	case errors.Is(err, domain.ErrAlreadyInitialized):
		return NewConflictError(c, "Settlement program is already initialized with different parameters")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrTokenAccountExists):
		return NewConflictError(c, "Token account already exists")
	case errors.Is(err, domain.ErrTokenAccountNotFound):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrEventNotFound), errors.Is(err, domain.ErrOrderNotFound):
		return NewNotFoundError(c, "Settlement not found")
	case errors.Is(err, domain.ErrInvalidSignature):
		return NewUnauthorizedError(c, "Payer signature is invalid")
	case errors.Is(err, domain.ErrOwnerMismatch):
		return NewValidationError(c, "Payer does not own the payer token account", []ValidationError{
			{Field: "payerTokenAccount", Message: "Must be owned by payer"},
		})
	case errors.Is(err, domain.ErrMintMismatch), errors.Is(err, domain.ErrDecimalsMismatch):
		return NewValidationError(c, err.Error(), []ValidationError{
			{Field: "payerTokenAccount", Message: "Must hold the configured mint"},
		})
	case errors.Is(err, domain.ErrAmountOverflow):
		return NewValidationError(c, "Amount overflow", []ValidationError{
			{Field: "amounts", Message: "Total exceeds the maximum representable amount"},
		})
	case errors.Is(err, domain.ErrInvalidIdentity):
		return NewValidationError(c, err.Error(), nil)
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Unhandled service error")
	return NewInternalError(c, "An unexpected error occurred")
}
