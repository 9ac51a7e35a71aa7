package handler

import (
	"net/http"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/middleware"
	"github.com/dafibh/bazaar/bazaar-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProgramHandler handles program configuration HTTP requests
type ProgramHandler struct {
	programService *service.ProgramService
}

// NewProgramHandler creates a new ProgramHandler
func NewProgramHandler(programService *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programService: programService}
}

// InitializeRequest represents the JSON request for initializing the program
type InitializeRequest struct {
	Authority    string `json:"authority"`
	Mint         string `json:"mint"`
	TokenProgram string `json:"tokenProgram"`
	Decimals     *int   `json:"decimals"`
}

// Initialize establishes the program configuration
// @Summary Initialize program
// @Description Writes the program configuration. Repeating the call with identical parameters is a no-op.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InitializeRequest true "Program parameters"
// @Success 200 {object} domain.ProgramConfig
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /admin/initialize [post]
func (h *ProgramHandler) Initialize(c echo.Context) error {
	var req InitializeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var errs []ValidationError
	input := domain.InitializeInput{
		Authority:    parseIdentityField(req.Authority, "authority", &errs),
		Mint:         parseIdentityField(req.Mint, "mint", &errs),
		TokenProgram: parseIdentityField(req.TokenProgram, "tokenProgram", &errs),
	}
	if req.Decimals == nil || *req.Decimals < 0 || *req.Decimals > 255 {
		errs = append(errs, ValidationError{Field: "decimals", Message: "Must be between 0 and 255"})
	} else {
		input.Decimals = uint8(*req.Decimals)
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid initialize request", errs)
	}

	cfg, err := h.programService.Initialize(c.Request().Context(), input)
	if err != nil {
		return handleServiceError(c, err)
	}

	log.Info().
		Str("subject", middleware.GetSubject(c)).
		Str("mint", cfg.Mint.String()).
		Msg("Program initialize requested")

	return c.JSON(http.StatusOK, cfg)
}

// GetProgram returns the program configuration
// @Summary Get program configuration
// @Tags program
// @Produce json
// @Success 200 {object} domain.ProgramConfig
// @Failure 412 {object} ProblemDetails
// @Router /program [get]
func (h *ProgramHandler) GetProgram(c echo.Context) error {
	cfg, err := h.programService.Config(c.Request().Context())
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}
