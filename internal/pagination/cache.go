package pagination

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/model"
)

// kv is the narrow KV contract the Cache needs: *gateway.KV satisfies this
// structurally, and tests can supply an in-memory fake without touching a
// real cluster.
type kv interface {
	Get(ctx context.Context, key string) (map[string]interface{}, error)
	Upsert(ctx context.Context, key string, value interface{}) error
}

// Cache is the Admin.cache-backed pagination store (spec §3/§4.D).
type Cache struct {
	kv kv
}

// New returns a Cache backed by kv. TTL is enforced by the collection
// itself (maxTTL), not by application code — Cache never deletes.
func New(kv kv) *Cache {
	return &Cache{kv: kv}
}

// Store UPSERTs state once under a freshly generated opaque token and
// returns it. Per spec §4.D, any database error here is non-fatal to the
// first-page response — callers should return the bundle without a `next`
// link and record a warning rather than fail the whole request.
func (c *Cache) Store(ctx context.Context, state model.PaginationState) (string, error) {
	token := uuid.NewString()
	doc, err := toDoc(state)
	if err != nil {
		return "", apierr.Wrap(apierr.Internal, "encode pagination state", err)
	}
	if err := c.kv.Upsert(ctx, token, doc); err != nil {
		return "", err
	}
	return token, nil
}

// Load fetches pagination state by token. A missing or expired token
// surfaces as apierr.Gone (HTTP 410), not NotFound, per spec §4.D.
func (c *Cache) Load(ctx context.Context, token string) (*model.PaginationState, error) {
	doc, err := c.kv.Get(ctx, token)
	if err != nil {
		if apierr.Is(err, apierr.NotFound) {
			return nil, apierr.Newf(apierr.Gone, "pagination token %q missing or expired", token)
		}
		return nil, err
	}
	var state model.PaginationState
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "re-encode pagination doc", err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "decode pagination state", err)
	}
	return &state, nil
}

func toDoc(state model.PaginationState) (map[string]interface{}, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
