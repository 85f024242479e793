// Package tenant implements the Tenant Context component (spec §4.A): it
// carries the active bucket identifier through the lifetime of one request.
// Grounded on the teacher's internal/platform/db/tenant.go context-key
// pattern, simplified to the spec's two-operation contract — no RLS session
// variables, since the document store has no analogous mechanism.
package tenant

import (
	"context"
	"regexp"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

type contextKey int

const tenantIDKey contextKey = iota

// idPattern constrains tenant identifiers to the characters safe to use as
// a bucket name component: lowercase letters, digits, hyphen, underscore.
var idPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ErrNoTenant is returned by Get when called before Set has bound a tenant
// to the context; downstream components convert this to an InvalidRequest
// outcome.
var ErrNoTenant = apierr.New(apierr.InvalidRequest, "no tenant bound to request context")

// Valid reports whether id is an acceptable tenant identifier.
func Valid(id string) bool {
	return idPattern.MatchString(id)
}

// Set returns a derived context with tenantID bound to it. Callers must use
// the returned context, not mutate ctx in place.
func Set(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// Get returns the tenant bound to ctx by a prior call to Set, or
// ErrNoTenant if none was bound.
func Get(ctx context.Context) (string, error) {
	v, ok := ctx.Value(tenantIDKey).(string)
	if !ok || v == "" {
		return "", ErrNoTenant
	}
	return v, nil
}

// MustGet is a convenience for callers that have already validated tenant
// binding upstream (e.g. middleware) and want to avoid repeating the error
// check; it panics if no tenant is bound, which should never happen past
// the HTTP entry middleware.
func MustGet(ctx context.Context) string {
	v, err := Get(ctx)
	if err != nil {
		panic(err)
	}
	return v
}
