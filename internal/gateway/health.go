package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Status is the detailed JSON body returned by /health (spec §4.J).
type Status struct {
	DatabaseUp      bool   `json:"databaseUp"`
	Circuit         string `json:"circuit"` // "OPEN" or "CLOSED"
	LastFailureAt   string `json:"lastFailureAt,omitempty"`
}

// LivenessHandler always returns 200 while the process runs.
func (g *Gateway) LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler returns 200 iff the gateway reports the database
// available AND the circuit closed; it actively probes the database so
// recovery is detected promptly.
func (g *Gateway) ReadinessHandler(defaultTenant string) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenant := c.Param("tenant")
		if tenant == "" {
			tenant = defaultTenant
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if g.IsCircuitOpen() || !g.IsAvailable(ctx, tenant) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
}

// DetailedHandler returns the /health JSON body: database up/down and circuit
// state. Status.LastFailureAt is not populated, so it is omitted from the body.
func (g *Gateway) DetailedHandler(defaultTenant string) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenant := c.Param("tenant")
		if tenant == "" {
			tenant = defaultTenant
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		open := g.IsCircuitOpen()
		up := !open && g.IsAvailable(ctx, tenant)

		circuitState := "CLOSED"
		if open {
			circuitState = "OPEN"
		}
		status := Status{DatabaseUp: up, Circuit: circuitState}
		code := http.StatusOK
		if !up {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, status)
	}
}

// CircuitResetHandler manually transitions the circuit to closed; used by
// operators after known-good recovery.
func (g *Gateway) CircuitResetHandler(c echo.Context) error {
	g.ResetCircuit()
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

