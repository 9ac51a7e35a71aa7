package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/middleware"
	"github.com/dafibh/bazaar/bazaar-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/mr-tron/base58"
)

// receiptExpiry is how long a presigned receipt link stays valid
const receiptExpiry = 15 * time.Minute

// ReceiptSigner issues temporary links to archived settlement records
type ReceiptSigner interface {
	ReceiptURL(ctx context.Context, event *domain.PaymentProcessedEvent, expiry time.Duration) (string, error)
}

// PaymentHandler handles split payment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
	programService *service.ProgramService
	payerLimiter   *middleware.RateLimiter
	receipts       ReceiptSigner
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService, programService *service.ProgramService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		programService: programService,
	}
}

// SetPayerLimiter rate limits payments per payer identity
func (h *PaymentHandler) SetPayerLimiter(rl *middleware.RateLimiter) {
	h.payerLimiter = rl
}

// SetReceiptSigner enables presigned receipt links
func (h *PaymentHandler) SetReceiptSigner(signer ReceiptSigner) {
	h.receipts = signer
}

// ProcessPaymentRequest represents the JSON request for a split payment.
// Amounts and the order id are decimal strings so 64-bit values survive JSON.
type ProcessPaymentRequest struct {
	OrderID             string   `json:"orderId"`
	Amounts             []string `json:"amounts"`
	Recipients          []string `json:"recipients"`
	Payer               string   `json:"payer"`
	PayerTokenAccount   string   `json:"payerTokenAccount"`
	TokenProgram        string   `json:"tokenProgram"`
	DestinationAccounts []string `json:"destinationAccounts"`
	Signature           string   `json:"signature"`
}

// PaymentListResponse is one page of settlement records
type PaymentListResponse struct {
	Events    []*domain.PaymentProcessedEvent `json:"events"`
	NextAfter int64                           `json:"nextAfter"`
}

// ReceiptResponse carries a temporary link to an archived settlement record
type ReceiptResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// ProcessPayment settles a split payment
// @Summary Process split payment
// @Description Validates the batch, binds each destination to its recipient and transfers every amount from the payer in one atomic unit
// @Tags payments
// @Accept json
// @Produce json
// @Param request body ProcessPaymentRequest true "Payment request"
// @Success 201 {object} domain.PaymentProcessedEvent
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 412 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Failure 500 {object} ProblemDetails
// @Router /payments [post]
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	var req ProcessPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	call, signature, fieldErrs := req.toCall()
	if len(fieldErrs) > 0 {
		return NewValidationError(c, "Invalid payment request", fieldErrs)
	}

	if err := domain.VerifyPaymentSignature(call, signature); err != nil {
		return handleServiceError(c, err)
	}

	if h.payerLimiter != nil && !h.payerLimiter.Allow(call.Payer.String()) {
		return middleware.TooManyRequests(c, h.payerLimiter, call.Payer.String())
	}

	ctx := c.Request().Context()
	cfg, err := h.programService.Config(ctx)
	if err != nil {
		return handleServiceError(c, err)
	}

	event, err := h.paymentService.ProcessPayment(ctx, cfg, call)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, event)
}

// GetPayment returns the settlement record for an order
// @Summary Get settlement
// @Tags payments
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} domain.PaymentProcessedEvent
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /payments/{orderId} [get]
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid order ID", []ValidationError{
			{Field: "orderId", Message: "Must be an unsigned 64-bit integer"},
		})
	}

	event, err := h.paymentService.GetSettlement(c.Request().Context(), orderID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// ListPayments pages through settlement records in commit order
// @Summary List settlements
// @Tags payments
// @Produce json
// @Param after query int false "Return records after this sequence number"
// @Param limit query int false "Page size (max 500)"
// @Success 200 {object} PaymentListResponse
// @Failure 400 {object} ProblemDetails
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	var after int64
	if v := c.QueryParam("after"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return NewValidationError(c, "Invalid cursor", []ValidationError{
				{Field: "after", Message: "Must be a non-negative integer"},
			})
		}
		after = parsed
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return NewValidationError(c, "Invalid limit", []ValidationError{
				{Field: "limit", Message: "Must be a positive integer"},
			})
		}
		limit = parsed
	}

	events, err := h.paymentService.ListSettlements(c.Request().Context(), after, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	next := after
	if len(events) > 0 {
		next = events[len(events)-1].Sequence
	}
	return c.JSON(http.StatusOK, PaymentListResponse{Events: events, NextAfter: next})
}

// GetReceipt returns a temporary link to the archived settlement record
// @Summary Get settlement receipt link
// @Tags payments
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} ReceiptResponse
// @Failure 404 {object} ProblemDetails
// @Router /payments/{orderId}/receipt [get]
func (h *PaymentHandler) GetReceipt(c echo.Context) error {
	if h.receipts == nil {
		return NewNotFoundError(c, "Receipt archive is not configured")
	}
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid order ID", nil)
	}

	ctx := c.Request().Context()
	event, err := h.paymentService.GetSettlement(ctx, orderID)
	if err != nil {
		return handleServiceError(c, err)
	}
	if event.PublishedAt == nil {
		return NewNotFoundError(c, "Receipt has not been archived yet")
	}

	url, err := h.receipts.ReceiptURL(ctx, event, receiptExpiry)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ReceiptResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(receiptExpiry).UTC().Format(time.RFC3339),
	})
}

// toCall parses the wire request, collecting every malformed field
func (r ProcessPaymentRequest) toCall() (domain.PaymentCall, []byte, []ValidationError) {
	var (
		call domain.PaymentCall
		errs []ValidationError
	)

	orderID, err := strconv.ParseUint(r.OrderID, 10, 64)
	if err != nil {
		errs = append(errs, ValidationError{Field: "orderId", Message: "Must be an unsigned 64-bit integer"})
	}
	call.Request.OrderID = orderID

	call.Request.Amounts = make([]uint64, len(r.Amounts))
	for i, a := range r.Amounts {
		v, err := domain.ParseAmount(a)
		if err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("amounts[%d]", i), Message: "Must be an unsigned 64-bit integer"})
			continue
		}
		call.Request.Amounts[i] = v
	}

	call.Request.Recipients = parseIdentityList(r.Recipients, "recipients", &errs)
	call.DestinationAccounts = parseIdentityList(r.DestinationAccounts, "destinationAccounts", &errs)
	call.Payer = parseIdentityField(r.Payer, "payer", &errs)
	call.PayerTokenAccount = parseIdentityField(r.PayerTokenAccount, "payerTokenAccount", &errs)
	call.TokenProgram = parseIdentityField(r.TokenProgram, "tokenProgram", &errs)

	signature, err := base58.Decode(r.Signature)
	if err != nil || len(signature) == 0 {
		errs = append(errs, ValidationError{Field: "signature", Message: "Must be a base58 signature"})
	}

	return call, signature, errs
}

func parseIdentityField(value, field string, errs *[]ValidationError) domain.Identity {
	id, err := domain.ParseIdentity(value)
	if err != nil {
		*errs = append(*errs, ValidationError{Field: field, Message: "Must be a base58 32-byte key"})
	}
	return id
}

func parseIdentityList(values []string, field string, errs *[]ValidationError) []domain.Identity {
	ids := make([]domain.Identity, len(values))
	for i, v := range values {
		ids[i] = parseIdentityField(v, fmt.Sprintf("%s[%d]", field, i), errs)
	}
	return ids
}
