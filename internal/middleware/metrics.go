// internal/middleware/metrics.go
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/SyedDaiam9101/prospect/internal/metrics"
)

// Metrics records Prometheus histogram metrics for HTTP requests.
// It measures the duration of each request and records it with route and
// status code labels.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()

			err := next(c)

			status := 0
			if resp, uerr := echo.UnwrapResponse(c.Response()); uerr == nil {
				status = resp.Status
			}
			if err != nil {
				status = http.StatusInternalServerError
			}
			if status == 0 {
				status = http.StatusOK
			}

			metrics.RecordHTTPLatency(
				c.Request().URL.Path,
				strconv.Itoa(status),
				time.Since(start).Seconds(),
			)
			return err
		}
	}
}
