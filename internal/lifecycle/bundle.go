package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/couchbase/gocb/v2"
	"github.com/google/uuid"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/model"
)

// ExecuteBundle implements spec §4.I's Bundle operation. A "transaction"
// bundle runs every entry inside one multi-document transaction — any
// entry failing rolls back the whole set and the caller gets a single
// OperationOutcome. A "batch" bundle runs each entry independently and
// records its own outcome per entry.
//
// Reference rewriting: an entry whose fullUrl is a synthetic "urn:uuid:"
// placeholder has its assigned id propagated to every reference field
// naming that placeholder elsewhere in the bundle, before any write.
func (l *Lifecycle) ExecuteBundle(ctx context.Context, tenant string, bundle *model.Bundle) (*model.Bundle, error) {
	assignedIDs := assignPlaceholderIDs(bundle.Entry)
	rewriteReferences(bundle.Entry, assignedIDs)

	switch bundle.Type {
	case "transaction":
		return l.executeTransactionBundle(ctx, tenant, bundle.Entry)
	case "batch":
		return l.executeBatchBundle(ctx, tenant, bundle.Entry)
	default:
		return nil, apierr.Newf(apierr.InvalidRequest, "unsupported bundle type %q", bundle.Type)
	}
}

// assignPlaceholderIDs scans POST entries whose fullUrl is a "urn:uuid:"
// placeholder, assigning each a real id (from the resource body's own "id"
// field when supplied, else a fresh uuid), and returns the placeholder ->
// "Type/id" substitution map.
func assignPlaceholderIDs(entries []model.BundleEntry) map[string]string {
	assigned := make(map[string]string)
	for i := range entries {
		e := &entries[i]
		if e.FullURL == "" || !strings.HasPrefix(e.FullURL, "urn:uuid:") {
			continue
		}
		if e.Request == nil || e.Request.Method != "POST" || e.Resource == nil {
			continue
		}
		resourceType, _ := e.Resource["resourceType"].(string)
		id, _ := e.Resource["id"].(string)
		if id == "" {
			id = uuid.NewString()
			e.Resource["id"] = id
		}
		assigned[e.FullURL] = resourceType + "/" + id
	}
	return assigned
}

// rewriteReferences replaces every {"reference": placeholder} occurrence
// across all entries' resource bodies with its resolved "Type/id".
func rewriteReferences(entries []model.BundleEntry, assigned map[string]string) {
	if len(assigned) == 0 {
		return
	}
	for i := range entries {
		if entries[i].Resource != nil {
			rewriteNode(entries[i].Resource, assigned)
		}
	}
}

func rewriteNode(node interface{}, assigned map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		if ref, ok := v["reference"].(string); ok {
			if resolved, ok := assigned[ref]; ok {
				v["reference"] = resolved
			}
		}
		for _, val := range v {
			rewriteNode(val, assigned)
		}
	case []interface{}:
		for _, item := range v {
			rewriteNode(item, assigned)
		}
	}
}

// executeBatchBundle runs each entry through the ordinary Create/Update/
// Delete paths independently, recording each entry's own outcome.
func (l *Lifecycle) executeBatchBundle(ctx context.Context, tenant string, entries []model.BundleEntry) (*model.Bundle, error) {
	responses := make([]model.BundleEntry, len(entries))
	for i, e := range entries {
		responses[i] = l.executeOneEntry(ctx, tenant, e)
	}
	return model.NewTransactionResponse(true, responses), nil
}

// executeTransactionBundle runs every entry inside one multi-document
// transaction; any entry error aborts and rolls back the whole set.
func (l *Lifecycle) executeTransactionBundle(ctx context.Context, tenant string, entries []model.BundleEntry) (*model.Bundle, error) {
	responses := make([]model.BundleEntry, len(entries))

	err := l.runTransaction(ctx, tenant, func(attempt *gocb.TransactionAttemptContext) error {
		for i, e := range entries {
			resp, err := l.applyEntryInTransaction(ctx, tenant, attempt, e)
			if err != nil {
				return err
			}
			responses[i] = resp
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindOf(err), "transaction bundle rolled back", err)
	}
	return model.NewTransactionResponse(false, responses), nil
}

// applyEntryInTransaction performs one bundle entry's write inside an
// already-open transaction attempt.
func (l *Lifecycle) applyEntryInTransaction(ctx context.Context, tenant string, attempt *gocb.TransactionAttemptContext, e model.BundleEntry) (model.BundleEntry, error) {
	if e.Request == nil {
		return model.BundleEntry{}, apierr.New(apierr.InvalidRequest, "bundle entry missing request")
	}
	resourceType, id := parseEntryURL(e.Request.URL)

	scope, collection, err := l.collectionFor(resourceType)
	if err != nil {
		return model.BundleEntry{}, err
	}
	resourcesColl, versionsColl, err := l.handles(tenant, scope, collection)
	if err != nil {
		return model.BundleEntry{}, err
	}

	switch e.Request.Method {
	case "POST":
		if id == "" {
			if rid, ok := e.Resource["id"].(string); ok {
				id = rid
			} else {
				id = uuid.NewString()
			}
		}
		resource := &model.Resource{Type: resourceType, ID: id, Meta: model.Meta{VersionID: "1", LastUpdated: model.NowRFC3339()}, Body: e.Resource}
		if _, err := attempt.Insert(resourcesColl, resource.Key(), resource.ToDocument()); err != nil {
			return model.BundleEntry{}, err
		}
		ver := model.FromResource(resource)
		if _, err := attempt.Insert(versionsColl, ver.Key(), ver.ToDocument()); err != nil {
			return model.BundleEntry{}, err
		}
		return model.BundleEntry{FullURL: resource.Key(), Resource: resource.ToDocument(), Response: &model.BundleResponse{Status: "201 Created", Location: resource.Key(), Etag: FormatETag("1")}}, nil

	case "PUT":
		key := resourceType + "/" + id
		existing, getErr := attempt.Get(resourcesColl, key)
		if getErr != nil {
			if !errors.Is(getErr, gocb.ErrDocumentNotFound) {
				return model.BundleEntry{}, getErr
			}
			resource := &model.Resource{Type: resourceType, ID: id, Meta: model.Meta{VersionID: "1", LastUpdated: model.NowRFC3339()}, Body: e.Resource}
			if _, err := attempt.Insert(resourcesColl, key, resource.ToDocument()); err != nil {
				return model.BundleEntry{}, err
			}
			ver := model.FromResource(resource)
			if _, err := attempt.Insert(versionsColl, ver.Key(), ver.ToDocument()); err != nil {
				return model.BundleEntry{}, err
			}
			return model.BundleEntry{FullURL: key, Resource: resource.ToDocument(), Response: &model.BundleResponse{Status: "201 Created", Etag: FormatETag("1")}}, nil
		}

		var currentDoc map[string]interface{}
		if err := existing.Content(&currentDoc); err != nil {
			return model.BundleEntry{}, err
		}
		current := model.FromDocument(currentDoc)
		prevVersion := model.FromResource(current)
		if _, err := attempt.Insert(versionsColl, prevVersion.Key(), prevVersion.ToDocument()); err != nil {
			return model.BundleEntry{}, err
		}
		nextVersionID, err := NextVersionID(current.Meta.VersionID)
		if err != nil {
			return model.BundleEntry{}, err
		}
		next := &model.Resource{Type: resourceType, ID: id, Meta: model.Meta{VersionID: nextVersionID, LastUpdated: model.NowRFC3339()}, Body: e.Resource}
		if _, err := attempt.Replace(existing, next.ToDocument()); err != nil {
			return model.BundleEntry{}, err
		}
		return model.BundleEntry{FullURL: key, Resource: next.ToDocument(), Response: &model.BundleResponse{Status: "200 OK", Etag: FormatETag(nextVersionID)}}, nil

	case "DELETE":
		key := resourceType + "/" + id
		existing, getErr := attempt.Get(resourcesColl, key)
		if getErr != nil {
			if errors.Is(getErr, gocb.ErrDocumentNotFound) {
				return model.BundleEntry{}, apierr.Newf(apierr.NotFound, "%s not found", key)
			}
			return model.BundleEntry{}, getErr
		}
		var currentDoc map[string]interface{}
		if err := existing.Content(&currentDoc); err != nil {
			return model.BundleEntry{}, err
		}
		current := model.FromDocument(currentDoc)
		prevVersion := model.FromResource(current)
		if _, err := attempt.Insert(versionsColl, prevVersion.Key(), prevVersion.ToDocument()); err != nil {
			return model.BundleEntry{}, err
		}
		nextVersionID, err := NextVersionID(current.Meta.VersionID)
		if err != nil {
			return model.BundleEntry{}, err
		}
		tombstone := &model.Version{Type: resourceType, ID: id, VersionID: nextVersionID, Deleted: true, Body: map[string]interface{}{}}
		if _, err := attempt.Insert(versionsColl, tombstone.Key(), tombstone.ToDocument()); err != nil {
			return model.BundleEntry{}, err
		}
		if err := attempt.Remove(existing); err != nil {
			return model.BundleEntry{}, err
		}
		return model.BundleEntry{FullURL: key, Response: &model.BundleResponse{Status: "204 No Content"}}, nil

	default:
		return model.BundleEntry{}, apierr.Newf(apierr.InvalidRequest, "unsupported bundle entry method %q", e.Request.Method)
	}
}

// executeOneEntry runs one batch-bundle entry through the ordinary
// lifecycle paths, converting any error into a per-entry outcome rather
// than failing the whole batch.
func (l *Lifecycle) executeOneEntry(ctx context.Context, tenant string, e model.BundleEntry) model.BundleEntry {
	if e.Request == nil {
		return model.BundleEntry{Response: &model.BundleResponse{Status: "400 Bad Request", Outcome: model.ErrorOutcome("invalid", "bundle entry missing request")}}
	}
	resourceType, id := parseEntryURL(e.Request.URL)

	switch e.Request.Method {
	case "POST":
		resource, err := l.Create(ctx, tenant, resourceType, e.Resource, id)
		if err != nil {
			return errorEntry(err)
		}
		return model.BundleEntry{FullURL: resource.Key(), Resource: resource.ToDocument(), Response: &model.BundleResponse{Status: "201 Created", Location: resource.Key(), Etag: FormatETag(resource.Meta.VersionID)}}

	case "PUT":
		resource, created, err := l.Update(ctx, tenant, resourceType, id, e.Resource, e.Request.IfMatch)
		if err != nil {
			return errorEntry(err)
		}
		status := "200 OK"
		if created {
			status = "201 Created"
		}
		return model.BundleEntry{FullURL: resource.Key(), Resource: resource.ToDocument(), Response: &model.BundleResponse{Status: status, Etag: FormatETag(resource.Meta.VersionID)}}

	case "DELETE":
		if err := l.Delete(ctx, tenant, resourceType, id); err != nil {
			return errorEntry(err)
		}
		return model.BundleEntry{Response: &model.BundleResponse{Status: "204 No Content"}}

	default:
		return model.BundleEntry{Response: &model.BundleResponse{Status: "400 Bad Request", Outcome: model.ErrorOutcome("invalid", "unsupported method "+e.Request.Method)}}
	}
}

func errorEntry(err error) model.BundleEntry {
	return model.BundleEntry{Response: &model.BundleResponse{
		Status:  statusForKind(apierr.KindOf(err)),
		Outcome: model.ErrorOutcome("processing", err.Error()),
	}}
}

func statusForKind(k apierr.Kind) string {
	switch k {
	case apierr.NotFound:
		return "404 Not Found"
	case apierr.Gone:
		return "410 Gone"
	case apierr.Conflict:
		return "409 Conflict"
	case apierr.InvalidRequest:
		return "400 Bad Request"
	case apierr.ValidationFailure:
		return "422 Unprocessable Entity"
	case apierr.DatabaseUnavailable:
		return "503 Service Unavailable"
	default:
		return "500 Internal Server Error"
	}
}

// parseEntryURL splits a bundle entry's request URL "Type/id" or bare
// "Type" (a create with no id yet) into its parts.
func parseEntryURL(url string) (resourceType, id string) {
	for i := 0; i < len(url); i++ {
		if url[i] == '/' {
			return url[:i], url[i+1:]
		}
	}
	return url, ""
}
