// Package instrumentation implements the Request Instrumentation component
// (spec §4.K): an 8-byte reqId minted at ingress and exactly one structured
// completion line per request. Grounded on the teacher's
// internal/platform/middleware/logger.go (zerolog event-chain shape) and
// internal/platform/fhir/request_log.go (interaction classification and
// resource/operation extraction from the request path), retargeted at this
// spec's tenant-prefixed path layout and field set.
package instrumentation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey int

const reqIDKey contextKey = iota

// GenerateReqID mints a new 8-byte request identifier, hex-encoded.
func GenerateReqID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the platform's entropy source is
		// broken; a zeroed id still uniquely-enough tags this one
		// request's log line rather than panicking the request path.
		return hex.EncodeToString(buf[:])
	}
	return hex.EncodeToString(buf[:])
}

// WithReqID returns a derived context carrying reqID, so downstream
// components (lifecycle, searchengine) can thread it into DEBUG-level
// sub-operation logs without re-deriving it from the HTTP layer.
func WithReqID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, reqIDKey, reqID)
}

// ReqID returns the reqId bound to ctx, or "" if none was bound.
func ReqID(ctx context.Context) string {
	v, _ := ctx.Value(reqIDKey).(string)
	return v
}
