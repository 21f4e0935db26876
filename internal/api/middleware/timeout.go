package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TimeoutConfig returns timeout middleware configuration
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: timeout,
	})
}

// SelectiveTimeoutConfig applies a longer timeout to the run endpoint,
// which executes a full aggregation synchronously, and the default
// timeout everywhere else.
func SelectiveTimeoutConfig(defaultTimeout, runTimeout time.Duration) echo.MiddlewareFunc {
	standard := TimeoutConfig(defaultTimeout)
	long := TimeoutConfig(runTimeout)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/api/v1/workflow/run" {
				return long(next)(c)
			}
			return standard(next)(c)
		}
	}
}
