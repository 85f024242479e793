package lifecycle

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/google/uuid"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/gateway"
	"github.com/fhir-gateway/gateway/internal/model"
	"github.com/fhir-gateway/gateway/internal/router"
)

const versionsScope = "Versions"
const versionsCollection = "Versions"

// Lifecycle is the process-wide Resource Lifecycle component (spec §4.I),
// constructed once at startup and shared across requests.
type Lifecycle struct {
	GW     *gateway.Gateway
	Router *router.Router

	// MaxConflictRetries bounds the Update/Patch/Delete retry loop on a
	// Conflict-classified transaction failure, per spec §7 ("retried up to
	// a bounded count, default 3, with jitter inside the lifecycle
	// component").
	MaxConflictRetries int
}

// New constructs a Lifecycle bound to gw/router.
func New(gw *gateway.Gateway, r *router.Router, maxConflictRetries int) *Lifecycle {
	if maxConflictRetries <= 0 {
		maxConflictRetries = 3
	}
	return &Lifecycle{GW: gw, Router: r, MaxConflictRetries: maxConflictRetries}
}

// Create assigns an id (server-generated when clientID is empty), stamps
// versionId "1", and inserts the resource and its version mirror in one
// transaction. Fails with apierr.Conflict if the id already exists.
func (l *Lifecycle) Create(ctx context.Context, tenant, resourceType string, body map[string]interface{}, clientID string) (*model.Resource, error) {
	id := clientID
	if id == "" {
		id = uuid.NewString()
	}

	resource := &model.Resource{
		Type: resourceType,
		ID:   id,
		Meta: model.Meta{VersionID: "1", LastUpdated: model.NowRFC3339()},
		Body: body,
	}

	scope, collection, err := l.collectionFor(resourceType)
	if err != nil {
		return nil, err
	}
	resourcesColl, versionsColl, err := l.handles(tenant, scope, collection)
	if err != nil {
		return nil, err
	}

	err = l.runTransaction(ctx, tenant, func(attempt *gocb.TransactionAttemptContext) error {
		if _, err := attempt.Insert(resourcesColl, resource.Key(), resource.ToDocument()); err != nil {
			return err
		}
		ver := model.FromResource(resource)
		if _, err := attempt.Insert(versionsColl, ver.Key(), ver.ToDocument()); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentExists) {
			return nil, apierr.Newf(apierr.Conflict, "%s/%s already exists", resourceType, id)
		}
		return nil, l.GW.Wrap(err)
	}
	return resource, nil
}

// Read does a direct KV GET of {type}/{id}. A deleted current document
// (tombstone) surfaces as apierr.Gone; a missing key as apierr.NotFound.
func (l *Lifecycle) Read(ctx context.Context, tenant, resourceType, id string) (*model.Resource, error) {
	scope, collection, err := l.collectionFor(resourceType)
	if err != nil {
		return nil, err
	}
	kv, err := l.GW.KV(tenant, scope, collection)
	if err != nil {
		return nil, err
	}
	doc, err := kv.Get(ctx, resourceType+"/"+id)
	if err != nil {
		return nil, err
	}
	r := model.FromDocument(doc)
	if r.Deleted {
		return nil, apierr.Newf(apierr.Gone, "%s/%s is deleted", resourceType, id)
	}
	return r, nil
}

// Update reads the current document inside the transaction; if absent it
// behaves as Create. Otherwise it copies the current document into
// Versions under its existing versionId, bumps versionId, and writes the
// new current — all in one transaction. ifMatch, when non-empty, must
// equal the current versionId or the write fails with apierr.Conflict.
func (l *Lifecycle) Update(ctx context.Context, tenant, resourceType, id string, body map[string]interface{}, ifMatch string) (resource *model.Resource, created bool, err error) {
	scope, collection, err := l.collectionFor(resourceType)
	if err != nil {
		return nil, false, err
	}
	resourcesColl, versionsColl, err := l.handles(tenant, scope, collection)
	if err != nil {
		return nil, false, err
	}

	key := resourceType + "/" + id
	var result *model.Resource
	var wasCreated bool

	runErr := l.withConflictRetry(ctx, func() error {
		return l.runTransaction(ctx, tenant, func(attempt *gocb.TransactionAttemptContext) error {
			existing, getErr := attempt.Get(resourcesColl, key)
			if getErr != nil {
				if !errors.Is(getErr, gocb.ErrDocumentNotFound) {
					return getErr
				}
				// Absent: behave as Create.
				resource = &model.Resource{
					Type: resourceType, ID: id,
					Meta: model.Meta{VersionID: "1", LastUpdated: model.NowRFC3339()},
					Body: body,
				}
				if _, err := attempt.Insert(resourcesColl, key, resource.ToDocument()); err != nil {
					return err
				}
				ver := model.FromResource(resource)
				if _, err := attempt.Insert(versionsColl, ver.Key(), ver.ToDocument()); err != nil {
					return err
				}
				wasCreated = true
				result = resource
				return nil
			}

			var currentDoc map[string]interface{}
			if err := existing.Content(&currentDoc); err != nil {
				return err
			}
			current := model.FromDocument(currentDoc)
			if ifMatch != "" && ifMatch != current.Meta.VersionID {
				return apierr.Newf(apierr.Conflict, "If-Match %q does not match current versionId %q", ifMatch, current.Meta.VersionID)
			}

			prevVersion := model.FromResource(current)
			if _, err := attempt.Insert(versionsColl, prevVersion.Key(), prevVersion.ToDocument()); err != nil {
				return err
			}

			nextVersionID, err := NextVersionID(current.Meta.VersionID)
			if err != nil {
				return err
			}
			next := &model.Resource{
				Type: resourceType, ID: id,
				Meta: model.Meta{VersionID: nextVersionID, LastUpdated: model.NowRFC3339()},
				Body: body,
			}
			if _, err := attempt.Replace(existing, next.ToDocument()); err != nil {
				return err
			}
			wasCreated = false
			result = next
			return nil
		})
	})
	if runErr != nil {
		return nil, false, runErr
	}
	return result, wasCreated, nil
}

// Patch applies mutate to the current body before the version bump; the
// full merged document is committed in the same transaction as Update.
func (l *Lifecycle) Patch(ctx context.Context, tenant, resourceType, id string, mutate func(current map[string]interface{}) (map[string]interface{}, error)) (*model.Resource, error) {
	current, err := l.Read(ctx, tenant, resourceType, id)
	if err != nil {
		return nil, err
	}
	merged, err := mutate(current.Body)
	if err != nil {
		return nil, err
	}
	result, _, err := l.Update(ctx, tenant, resourceType, id, merged, "")
	return result, err
}

// Delete copies the current document into Versions under its existing
// versionId, writes a new tombstone version, and removes the current
// document from Resources, all in one transaction.
func (l *Lifecycle) Delete(ctx context.Context, tenant, resourceType, id string) error {
	scope, collection, err := l.collectionFor(resourceType)
	if err != nil {
		return err
	}
	resourcesColl, versionsColl, err := l.handles(tenant, scope, collection)
	if err != nil {
		return err
	}
	key := resourceType + "/" + id

	return l.withConflictRetry(ctx, func() error {
		err := l.runTransaction(ctx, tenant, func(attempt *gocb.TransactionAttemptContext) error {
			existing, getErr := attempt.Get(resourcesColl, key)
			if getErr != nil {
				if errors.Is(getErr, gocb.ErrDocumentNotFound) {
					return apierr.Newf(apierr.NotFound, "%s/%s not found", resourceType, id)
				}
				return getErr
			}
			var currentDoc map[string]interface{}
			if err := existing.Content(&currentDoc); err != nil {
				return err
			}
			current := model.FromDocument(currentDoc)

			prevVersion := model.FromResource(current)
			if _, err := attempt.Insert(versionsColl, prevVersion.Key(), prevVersion.ToDocument()); err != nil {
				return err
			}

			nextVersionID, err := NextVersionID(current.Meta.VersionID)
			if err != nil {
				return err
			}
			tombstone := &model.Version{Type: resourceType, ID: id, VersionID: nextVersionID, Deleted: true, Body: map[string]interface{}{}}
			if _, err := attempt.Insert(versionsColl, tombstone.Key(), tombstone.ToDocument()); err != nil {
				return err
			}

			if err := attempt.Remove(existing); err != nil {
				return err
			}
			return nil
		})
		return err
	})
}

// VRead does a direct KV GET on Versions under {type}/{id}/{vid}.
func (l *Lifecycle) VRead(ctx context.Context, tenant, resourceType, id, versionID string) (*model.Version, error) {
	kv, err := l.GW.KV(tenant, versionsScope, versionsCollection)
	if err != nil {
		return nil, err
	}
	doc, err := kv.Get(ctx, resourceType+"/"+id+"/"+versionID)
	if err != nil {
		return nil, err
	}
	return model.VersionFromDocument(doc, resourceType, id, versionID), nil
}

func (l *Lifecycle) collectionFor(resourceType string) (scope, collection string, err error) {
	scope, err = l.Router.Scope(resourceType)
	if err != nil {
		return "", "", err
	}
	collection, err = l.Router.TargetCollection(resourceType)
	if err != nil {
		return "", "", err
	}
	return scope, collection, nil
}

func (l *Lifecycle) handles(tenant, scope, collection string) (resourcesColl, versionsColl *gocb.Collection, err error) {
	resourcesColl, err = l.GW.Collection(tenant, scope, collection)
	if err != nil {
		return nil, nil, err
	}
	versionsColl, err = l.GW.Collection(tenant, versionsScope, versionsCollection)
	if err != nil {
		return nil, nil, err
	}
	return resourcesColl, versionsColl, nil
}

// runTransaction opens one multi-document transaction against tenant's
// bucket and runs fn inside it, per spec §4.I's "all lifecycle calls
// obtain the cluster via clusterForTransaction so circuit opening fails
// them fast."
func (l *Lifecycle) runTransaction(ctx context.Context, tenant string, fn func(*gocb.TransactionAttemptContext) error) error {
	cluster, err := l.GW.ClusterForTransaction(tenant)
	if err != nil {
		return err
	}
	_, err = cluster.Transactions().Run(func(attempt *gocb.TransactionAttemptContext) error {
		return fn(attempt)
	}, &gocb.TransactionOptions{Context: ctx})
	return err
}

// withConflictRetry retries fn up to MaxConflictRetries times when it
// returns an apierr.Conflict, sleeping a small jittered backoff between
// attempts. Any other error returns immediately.
func (l *Lifecycle) withConflictRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= l.MaxConflictRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !apierr.Is(err, apierr.Conflict) {
			return err
		}
		lastErr = err
		if attempt == l.MaxConflictRetries {
			break
		}
		backoff := time.Duration(10+rand.Intn(40)) * time.Millisecond * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}
