package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog"
)

func TestCircuitOpensOnConnectivityError(t *testing.T) {
	c := newCircuit(30*time.Second, zerolog.Nop())

	_, err := c.execute(func() (interface{}, error) {
		return nil, gocb.ErrTimeout
	})
	if err == nil {
		t.Fatal("expected error from first failing call")
	}
	if !c.isOpen() {
		t.Fatal("expected circuit to be open after a connectivity-class error")
	}

	// The very next call must fail fast without invoking fn.
	called := false
	_, err = c.execute(func() (interface{}, error) {
		called = true
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected fast-fail error while circuit is open")
	}
	if called {
		t.Fatal("fn must not be invoked while circuit is open")
	}
}

func TestCircuitStaysClosedOnResultSetError(t *testing.T) {
	c := newCircuit(30*time.Second, zerolog.Nop())

	resultSetErr := errors.New("not found")
	_, err := c.execute(func() (interface{}, error) {
		return nil, resultSetErr
	})
	if err != resultSetErr {
		t.Fatalf("expected result-set error to propagate unchanged, got %v", err)
	}
	if c.isOpen() {
		t.Fatal("result-set class errors must not open the circuit")
	}
}

func TestManualReset(t *testing.T) {
	c := newCircuit(30*time.Second, zerolog.Nop())
	c.execute(func() (interface{}, error) { return nil, gocb.ErrTimeout })
	if !c.isOpen() {
		t.Fatal("expected circuit open before reset")
	}
	c.reset()
	if c.isOpen() {
		t.Fatal("expected circuit closed after manual reset")
	}
}
