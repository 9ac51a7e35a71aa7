package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// TokenAccountHandler handles token account HTTP requests
type TokenAccountHandler struct {
	tokenAccountService *service.TokenAccountService
	programService      *service.ProgramService
}

// NewTokenAccountHandler creates a new TokenAccountHandler
func NewTokenAccountHandler(tokenAccountService *service.TokenAccountService, programService *service.ProgramService) *TokenAccountHandler {
	return &TokenAccountHandler{
		tokenAccountService: tokenAccountService,
		programService:      programService,
	}
}

// OpenTokenAccountRequest represents the JSON request for opening an associated account
type OpenTokenAccountRequest struct {
	Owner string `json:"owner"`
}

// MintToRequest represents the JSON request for funding a token account
type MintToRequest struct {
	Amount string `json:"amount"`
}

// TokenAccountResponse represents a token account in API responses
type TokenAccountResponse struct {
	Address   string `json:"address"`
	Owner     string `json:"owner"`
	Mint      string `json:"mint"`
	Amount    string `json:"amount"`
	UIAmount  string `json:"uiAmount"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// AssociatedAddressResponse carries a derived token account address
type AssociatedAddressResponse struct {
	Owner   string `json:"owner"`
	Address string `json:"address"`
}

// GetTokenAccount returns a token account balance
// @Summary Get token account
// @Tags token-accounts
// @Produce json
// @Param address path string true "Token account address (base58)"
// @Success 200 {object} TokenAccountResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /token-accounts/{address} [get]
func (h *TokenAccountHandler) GetTokenAccount(c echo.Context) error {
	address, err := domain.ParseIdentity(c.Param("address"))
	if err != nil {
		return NewValidationError(c, "Invalid address", []ValidationError{
			{Field: "address", Message: "Must be a base58 32-byte key"},
		})
	}

	ctx := c.Request().Context()
	account, err := h.tokenAccountService.GetAccount(ctx, address)
	if err != nil {
		return handleServiceError(c, err)
	}
	cfg, err := h.programService.Config(ctx)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toTokenAccountResponse(account, cfg.Decimals))
}

// GetAssociatedAddress derives the owner's token account address for the configured mint
// @Summary Derive associated token account address
// @Tags token-accounts
// @Produce json
// @Param owner query string true "Owner identity (base58)"
// @Success 200 {object} AssociatedAddressResponse
// @Failure 400 {object} ProblemDetails
// @Failure 412 {object} ProblemDetails
// @Router /token-accounts/associated [get]
func (h *TokenAccountHandler) GetAssociatedAddress(c echo.Context) error {
	owner, err := domain.ParseIdentity(c.QueryParam("owner"))
	if err != nil {
		return NewValidationError(c, "Invalid owner", []ValidationError{
			{Field: "owner", Message: "Must be a base58 32-byte key"},
		})
	}

	cfg, err := h.programService.Config(c.Request().Context())
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, AssociatedAddressResponse{
		Owner:   owner.String(),
		Address: cfg.AssociatedAccount(owner).String(),
	})
}

// OpenTokenAccount opens the associated token account of an owner
// @Summary Open associated token account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OpenTokenAccountRequest true "Owner"
// @Success 201 {object} TokenAccountResponse
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 412 {object} ProblemDetails
// @Router /admin/token-accounts [post]
func (h *TokenAccountHandler) OpenTokenAccount(c echo.Context) error {
	var req OpenTokenAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	owner, err := domain.ParseIdentity(req.Owner)
	if err != nil {
		return NewValidationError(c, "Invalid owner", []ValidationError{
			{Field: "owner", Message: "Must be a base58 32-byte key"},
		})
	}

	ctx := c.Request().Context()
	account, err := h.tokenAccountService.OpenAssociatedAccount(ctx, owner)
	if err != nil {
		return handleServiceError(c, err)
	}
	cfg, err := h.programService.Config(ctx)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toTokenAccountResponse(account, cfg.Decimals))
}

// MintTo credits new supply to a token account
// @Summary Mint to token account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param address path string true "Token account address (base58)"
// @Param request body MintToRequest true "Amount in base units"
// @Success 200 {object} TokenAccountResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /admin/token-accounts/{address}/mint [post]
func (h *TokenAccountHandler) MintTo(c echo.Context) error {
	address, err := domain.ParseIdentity(c.Param("address"))
	if err != nil {
		return NewValidationError(c, "Invalid address", nil)
	}
	var req MintToRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be an unsigned 64-bit integer"},
		})
	}

	ctx := c.Request().Context()
	account, err := h.tokenAccountService.MintTo(ctx, address, amount)
	if err != nil {
		return handleServiceError(c, err)
	}
	cfg, err := h.programService.Config(ctx)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toTokenAccountResponse(account, cfg.Decimals))
}

func toTokenAccountResponse(a *domain.TokenAccount, decimals uint8) TokenAccountResponse {
	return TokenAccountResponse{
		Address:   a.Address.String(),
		Owner:     a.Owner.String(),
		Mint:      a.Mint.String(),
		Amount:    domain.FormatAmounts([]uint64{a.Amount})[0],
		UIAmount:  domain.FormatUIAmount(a.Amount, decimals),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}
