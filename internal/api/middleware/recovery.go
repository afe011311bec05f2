package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
)

// Recovery returns Echo middleware that recovers from panics, logs the stack
// trace, and returns a 500 Internal Server Error to the client. When the
// request passed through RequestLog first, the panic log carries the same
// request ID so the two entries can be correlated.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)

					fields := []any{
						"error", fmt.Sprint(r),
						"method", c.Request().Method,
						"path", c.Request().URL.Path,
						"stack", string(buf[:n]),
					}
					if reqID, ok := c.Get("request_id").(string); ok && reqID != "" {
						fields = append(fields, "request_id", reqID)
					}
					log.Error("panic recovered", fields...)

					err = c.JSON(http.StatusInternalServerError, map[string]string{
						"error": "internal server error",
					})
				}
			}()
			return next(c)
		}
	}
}
