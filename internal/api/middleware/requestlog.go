package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// RequestLog returns Echo middleware that logs requests with structured fields.
// It generates a request ID if none is provided and propagates it through
// the response header and echo context.
//
// Health probe paths are special-cased so scrape noise stays out of the logs:
// only the first consecutive success per probe path is logged, while failures
// are always logged at WARN and re-arm the success log.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var mu sync.Mutex
	successLogged := map[string]bool{}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set("request_id", reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status
			fields := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}

			if isHealthPath(path) {
				if status >= 400 {
					mu.Lock()
					successLogged[path] = false
					mu.Unlock()
					log.Warn("request", fields...)
					return err
				}

				mu.Lock()
				suppress := successLogged[path]
				successLogged[path] = true
				mu.Unlock()
				if suppress {
					return err
				}
			}

			log.Info("request", fields...)
			return err
		}
	}
}

func isHealthPath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}
