package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/common/ratelimit"
)

// SubmitRateLimit caps submissions per editor. Requests without an editor
// id (see ExtractEditorID) are counted by client IP. A failing limiter lets
// the request through.
func SubmitRateLimit(limiter ratelimit.Limiter, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limit <= 0 {
			return next
		}
		return func(c echo.Context) error {
			key := "submit:ip:" + c.RealIP()
			if editorID := GetEditorID(c); editorID != "" {
				key = "submit:editor:" + editorID
			}

			result, err := limiter.Allow(c.Request().Context(), key, int64(limit), window)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				retryAfter := int64(result.RetryAfter.Round(time.Second) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "submit_rate_limit_exceeded",
					"message": "Too many submissions. Please wait before trying again.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              window.String(),
						"retry_after_seconds": retryAfter,
					},
				})
			}

			return next(c)
		}
	}
}
