package config

import "testing"

func TestValidateRejectsBadPort(t *testing.T) {
	c := &Config{
		Port: 0, CircuitResetTimeoutMs: 1, PaginationDefaultPageSize: 1,
		PaginationTTLSeconds: 1, SearchFTSLimit: 1, WorkerMax: 1, RequestTimeoutMs: 1,
	}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidateRejectsWorkerSizing(t *testing.T) {
	c := &Config{
		Port: 8080, CircuitResetTimeoutMs: 1, PaginationDefaultPageSize: 1,
		PaginationTTLSeconds: 1, SearchFTSLimit: 1, WorkerMax: 2, WorkerMinSpare: 5,
		RequestTimeoutMs: 1,
	}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for minSpare > max")
	}
}

func TestValidateRequiresPasswordInProduction(t *testing.T) {
	c := &Config{
		Port: 8080, Env: "production", CircuitResetTimeoutMs: 1,
		PaginationDefaultPageSize: 1, PaginationTTLSeconds: 1, SearchFTSLimit: 1,
		WorkerMax: 1, RequestTimeoutMs: 1,
	}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing password in production")
	}
	c.CouchbasePassword = "secret"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	c := &Config{CircuitResetTimeoutMs: 30000, PaginationTTLSeconds: 300, RequestTimeoutMs: 5000}
	if c.CircuitResetTimeout().Seconds() != 30 {
		t.Fatalf("got %v", c.CircuitResetTimeout())
	}
	if c.PaginationTTL().Seconds() != 300 {
		t.Fatalf("got %v", c.PaginationTTL())
	}
	if c.RequestTimeout().Seconds() != 5 {
		t.Fatalf("got %v", c.RequestTimeout())
	}
}
