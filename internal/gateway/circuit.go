package gateway

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// classifyConnectivity reports whether err belongs to the connectivity-class
// taxonomy spec §4.C names: lost connection, node/service unavailable,
// ambiguous timeout, request canceled after submit. Result-set errors
// (syntax, not-found, conflict) are NOT connectivity-class and must not
// open the circuit.
func classifyConnectivity(err error) bool {
	if err == nil {
		return false
	}
	connectivityErrs := []error{
		gocb.ErrTimeout,
		gocb.ErrAmbiguousTimeout,
		gocb.ErrUnambiguousTimeout,
		gocb.ErrRequestCanceled,
		gocb.ErrServiceNotAvailable,
		gocb.ErrNodeNotAvailable,
		io.EOF,
		io.ErrUnexpectedEOF,
		context.DeadlineExceeded,
	}
	for _, c := range connectivityErrs {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

// circuit wraps a sony/gobreaker.CircuitBreaker with the exact state
// machine spec §4.C describes, logging exactly one structured line per
// transition (OPEN / CLOSE / MANUAL_RESET) and nothing else on the failure
// path. gobreaker has no built-in manual reset, so ResetCircuit swaps in a
// freshly constructed breaker behind an atomic pointer — the recreate-on-
// reset pattern is the idiomatic way to force gobreaker back to closed.
type circuit struct {
	breaker      atomic.Pointer[gobreaker.CircuitBreaker]
	resetTimeout time.Duration
	logger       zerolog.Logger
}

func newCircuit(resetTimeout time.Duration, logger zerolog.Logger) *circuit {
	c := &circuit{resetTimeout: resetTimeout, logger: logger}
	c.breaker.Store(c.build())
	return c
}

func (c *circuit) build() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "db-gateway",
		Timeout: c.resetTimeout,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		IsSuccessful: func(err error) bool {
			return !classifyConnectivity(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logTransition(from, to)
		},
	})
}

func (c *circuit) logTransition(from, to gobreaker.State) {
	if to == gobreaker.StateOpen {
		c.logger.Warn().Str("circuit", "db-gateway").Str("transition", "OPEN").
			Str("from", from.String()).Msg("circuit opened")
		return
	}
	if to == gobreaker.StateClosed {
		c.logger.Info().Str("circuit", "db-gateway").Str("transition", "CLOSE").
			Str("from", from.String()).Msg("circuit closed")
	}
}

// execute runs fn through the breaker. If the breaker is open, it returns
// gobreaker.ErrOpenState without calling fn at all — the caller maps that
// to apierr.DatabaseUnavailable without issuing any database I/O.
func (c *circuit) execute(fn func() (interface{}, error)) (interface{}, error) {
	return c.breaker.Load().Execute(fn)
}

// isOpen reports whether the circuit is currently open.
func (c *circuit) isOpen() bool {
	return c.breaker.Load().State() == gobreaker.StateOpen
}

// reset forces the circuit back to closed, logging a MANUAL_RESET line.
// Used by the operator-facing /health/circuit/reset endpoint (spec §4.J).
func (c *circuit) reset() {
	from := c.breaker.Load().State()
	c.breaker.Store(c.build())
	c.logger.Info().Str("circuit", "db-gateway").Str("transition", "MANUAL_RESET").
		Str("from", from.String()).Msg("circuit manually reset")
}
