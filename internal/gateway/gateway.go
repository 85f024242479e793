// Package gateway implements the DB Gateway component (spec §4.C): the
// single public surface for every KV/N1QL/FTS/transaction call, protected
// by a shared circuit breaker, plus the health/error-mapping surface of
// component J. Grounded on the teacher's internal/platform/db/pool.go
// (connect-and-ping construction) and internal/platform/db/health.go
// (PoolStats/HealthHandler shape), with sony/gobreaker replacing an
// absent hand-rolled breaker.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/couchbase/gocb/v2/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

// Gateway is the process-wide database access point. One instance is
// constructed at startup and shared by every request; its only mutable
// state is the circuit breaker and a cache of opened bucket handles.
type Gateway struct {
	cluster *gocb.Cluster
	circuit *circuit
	logger  zerolog.Logger
	metrics *metrics

	mu      sync.RWMutex
	buckets map[string]*gocb.Bucket
}

// Options configures New.
type Options struct {
	ConnectionString string
	Username         string
	Password         string
	CircuitReset     time.Duration
	Registerer       prometheus.Registerer
}

// New connects to the cluster and returns a ready Gateway. Mirrors the
// teacher's NewPool: parse/apply config, establish the connection, wrap
// errors with context.
func New(opts Options, logger zerolog.Logger) (*Gateway, error) {
	cluster, err := gocb.Connect(opts.ConnectionString, gocb.ClusterOptions{
		Username: opts.Username,
		Password: opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to cluster: %w", err)
	}
	if err := cluster.WaitUntilReady(10*time.Second, nil); err != nil {
		return nil, fmt.Errorf("cluster not ready: %w", err)
	}

	return &Gateway{
		cluster: cluster,
		circuit: newCircuit(opts.CircuitReset, logger),
		logger:  logger,
		metrics: newMetrics(opts.Registerer),
		buckets: make(map[string]*gocb.Bucket),
	}, nil
}

// Close disconnects from the cluster at shutdown.
func (g *Gateway) Close() error {
	return g.cluster.Close(nil)
}

func (g *Gateway) bucket(tenant string) (*gocb.Bucket, error) {
	g.mu.RLock()
	b, ok := g.buckets[tenant]
	g.mu.RUnlock()
	if ok {
		return b, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.buckets[tenant]; ok {
		return b, nil
	}
	b = g.cluster.Bucket(tenant)
	if err := b.WaitUntilReady(5*time.Second, nil); err != nil {
		return nil, fmt.Errorf("bucket %s not ready: %w", tenant, err)
	}
	g.buckets[tenant] = b
	return b, nil
}

// Collection returns a KV handle for (tenant, scope, collection). Still
// protected by the circuit because downstream KV calls fail fast when the
// circuit is open.
func (g *Gateway) Collection(tenant, scope, collection string) (*gocb.Collection, error) {
	if g.circuit.isOpen() {
		return nil, apierr.New(apierr.DatabaseUnavailable, "circuit open")
	}
	b, err := g.bucket(tenant)
	if err != nil {
		return nil, g.wrap(err)
	}
	return b.Scope(scope).Collection(collection), nil
}

// ClusterForTransaction returns the cluster handle for opening a
// multi-document transaction (spec §4.C, §4.I).
func (g *Gateway) ClusterForTransaction(tenant string) (*gocb.Cluster, error) {
	if g.circuit.isOpen() {
		return nil, apierr.New(apierr.DatabaseUnavailable, "circuit open")
	}
	if _, err := g.bucket(tenant); err != nil {
		return nil, g.wrap(err)
	}
	return g.cluster, nil
}

// Query runs an N1QL statement against the cluster, circuit-gated.
func (g *Gateway) Query(ctx context.Context, n1ql string, opts *gocb.QueryOptions) (*gocb.QueryResult, error) {
	start := time.Now()
	res, err := g.circuit.execute(func() (interface{}, error) {
		o := opts
		if o == nil {
			o = &gocb.QueryOptions{}
		}
		o.Context = ctx
		return g.cluster.Query(n1ql, o)
	})
	g.recordAndLog("n1ql", start, err)
	if err != nil {
		return nil, g.wrap(err)
	}
	return res.(*gocb.QueryResult), nil
}

// SearchQuery runs an FTS query against the named index, circuit-gated.
func (g *Gateway) SearchQuery(ctx context.Context, index string, query search.Query, opts *gocb.SearchOptions) (*gocb.SearchResult, error) {
	start := time.Now()
	res, err := g.circuit.execute(func() (interface{}, error) {
		o := opts
		if o == nil {
			o = &gocb.SearchOptions{}
		}
		o.Context = ctx
		return g.cluster.SearchQuery(index, query, o)
	})
	g.recordAndLog("fts", start, err)
	if err != nil {
		return nil, g.wrap(err)
	}
	return res.(*gocb.SearchResult), nil
}

func (g *Gateway) recordAndLog(kind string, start time.Time, err error) {
	seconds := time.Since(start).Seconds()
	g.metrics.observeCall(kind, seconds, err == nil)
	g.metrics.setCircuitOpen(g.circuit.isOpen())
}

// wrap converts a circuit/driver error into the apierr taxonomy: an open
// breaker or a connectivity-class failure becomes DatabaseUnavailable;
// anything else is re-thrown unchanged, per spec §7's propagation policy
// ("the gateway surfaces DatabaseUnavailable and otherwise re-throws").
func (g *Gateway) wrap(err error) error {
	if err == nil {
		return nil
	}
	if err == gobreaker.ErrOpenState || classifyConnectivity(err) {
		return apierr.Wrap(apierr.DatabaseUnavailable, "database unavailable", err)
	}
	return err
}

// IsAvailable actively probes the database (a lightweight N1QL ping) to
// report whether it is currently reachable, for the readiness endpoint.
func (g *Gateway) IsAvailable(ctx context.Context, tenant string) bool {
	if g.circuit.isOpen() {
		return false
	}
	if _, err := g.bucket(tenant); err != nil {
		return false
	}
	_, err := g.Query(ctx, "SELECT 1", &gocb.QueryOptions{})
	return err == nil
}

// Wrap applies the same connectivity-classification error mapping Query and
// SearchQuery use, for callers (the lifecycle component's transaction path)
// that drive the cluster directly instead of through Query/SearchQuery.
func (g *Gateway) Wrap(err error) error { return g.wrap(err) }

// IsCircuitOpen reports current circuit state.
func (g *Gateway) IsCircuitOpen() bool { return g.circuit.isOpen() }

// ResetCircuit forces the circuit back to closed (operator action).
func (g *Gateway) ResetCircuit() { g.circuit.reset() }
