package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/couchbase/gocb/v2"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

// KV is a circuit-gated handle onto one (tenant, scope, collection),
// returned by Gateway.KV. Every document-level call goes through the same
// breaker as Query/SearchQuery, so a connectivity failure observed during a
// KV round trip opens the circuit exactly like an N1QL or FTS failure
// would.
type KV struct {
	coll *gocb.Collection
	gw   *Gateway
}

// KV returns a circuit-gated handle for (tenant, scope, collection).
func (g *Gateway) KV(tenant, scope, collection string) (*KV, error) {
	coll, err := g.Collection(tenant, scope, collection)
	if err != nil {
		return nil, err
	}
	return &KV{coll: coll, gw: g}, nil
}

// Get fetches a document by key. A missing key surfaces as apierr.NotFound.
func (k *KV) Get(ctx context.Context, key string) (map[string]interface{}, error) {
	start := time.Now()
	res, err := k.gw.circuit.execute(func() (interface{}, error) {
		return k.coll.Get(key, &gocb.GetOptions{Context: ctx})
	})
	k.gw.recordAndLog("kv_get", start, err)
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, apierr.Newf(apierr.NotFound, "key %q not found", key)
		}
		return nil, k.gw.wrap(err)
	}
	getRes := res.(*gocb.GetResult)
	var doc map[string]interface{}
	if err := getRes.Content(&doc); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "decode document", err)
	}
	return doc, nil
}

// Insert creates a new document; fails with apierr.Conflict if key already
// exists.
func (k *KV) Insert(ctx context.Context, key string, value interface{}) error {
	start := time.Now()
	_, err := k.gw.circuit.execute(func() (interface{}, error) {
		return k.coll.Insert(key, value, &gocb.InsertOptions{Context: ctx})
	})
	k.gw.recordAndLog("kv_insert", start, err)
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentExists) {
			return apierr.Newf(apierr.Conflict, "key %q already exists", key)
		}
		return k.gw.wrap(err)
	}
	return nil
}

// Upsert writes a document unconditionally.
func (k *KV) Upsert(ctx context.Context, key string, value interface{}) error {
	start := time.Now()
	_, err := k.gw.circuit.execute(func() (interface{}, error) {
		return k.coll.Upsert(key, value, &gocb.UpsertOptions{Context: ctx})
	})
	k.gw.recordAndLog("kv_upsert", start, err)
	if err != nil {
		return k.gw.wrap(err)
	}
	return nil
}

// BatchGet fetches many keys concurrently, bounded by a small worker count.
// Keys that are not found are silently omitted from the result — callers
// materializing FTS hits expect some keys to have disappeared between the
// search and the fetch (spec §4.H step 4); any other error aborts the
// whole batch.
func (k *KV) BatchGet(ctx context.Context, keys []string) (map[string]map[string]interface{}, error) {
	const workers = 16

	type result struct {
		key string
		doc map[string]interface{}
		err error
	}

	jobs := make(chan string)
	results := make(chan result)
	var wg sync.WaitGroup

	for i := 0; i < workers && i < len(keys); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				doc, err := k.Get(ctx, key)
				results <- result{key: key, doc: doc, err: err}
			}
		}()
	}
	go func() {
		for _, key := range keys {
			jobs <- key
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]map[string]interface{}, len(keys))
	for r := range results {
		if r.err != nil {
			if apierr.Is(r.err, apierr.NotFound) {
				continue
			}
			return nil, r.err
		}
		out[r.key] = r.doc
	}
	return out, nil
}

// Remove deletes a document by key.
func (k *KV) Remove(ctx context.Context, key string) error {
	start := time.Now()
	_, err := k.gw.circuit.execute(func() (interface{}, error) {
		return k.coll.Remove(key, &gocb.RemoveOptions{Context: ctx})
	})
	k.gw.recordAndLog("kv_remove", start, err)
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return apierr.Newf(apierr.NotFound, "key %q not found", key)
		}
		return k.gw.wrap(err)
	}
	return nil
}
