package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// problemDetails represents an RFC 7807 Problem Details response
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error types
const (
	errorTypeUnauthorized = "https://bazaar.app/errors/unauthorized"
	errorTypeForbidden    = "https://bazaar.app/errors/forbidden"
	errorTypeRateLimit    = "https://bazaar.app/errors/rate-limit"
)

func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, problemDetails{
		Type:     errorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

func forbiddenError(c echo.Context, detail string) error {
	return c.JSON(http.StatusForbidden, problemDetails{
		Type:     errorTypeForbidden,
		Title:    "Forbidden",
		Status:   http.StatusForbidden,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// TooManyRequests writes a 429 with rate limit headers for the given limiter state
func TooManyRequests(c echo.Context, rl *RateLimiter, key string) error {
	_, resetTime := rl.GetState(key)
	retryAfter := rl.RetryAfter(key)

	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.Limit()))
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))
	h.Set("Retry-After", fmt.Sprintf("%d", retryAfter))

	return c.JSON(http.StatusTooManyRequests, problemDetails{
		Type:     errorTypeRateLimit,
		Title:    "Rate Limit Exceeded",
		Status:   http.StatusTooManyRequests,
		Detail:   fmt.Sprintf("Too many requests. Please retry after %d seconds.", retryAfter),
		Instance: c.Request().URL.Path,
	})
}
