package lifecycle

import (
	"context"
	"time"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/ftsquery"
	"github.com/fhir-gateway/gateway/internal/model"
)

// versionsIndex is the single FTS index covering the Versions collection
// across every tenant and resource type — unlike Resources, Versions is
// not split across several collections, so it needs no router entry.
const versionsIndex = "versions_idx"

// History implements spec §4.I's History operation: FTS the Versions
// index for this (type, id), optionally since a timestamp, sorted
// descending by lastUpdated and capped at count, then batch-KV-GET the
// matched version keys and return them in that order. The HTTP layer
// builds the final Bundle with per-entry request/response/ETags.
func (l *Lifecycle) History(ctx context.Context, tenant, resourceType, id string, since *time.Time, count int) ([]*model.Version, error) {
	builder := ftsquery.New(resourceType, count).
		Add(search.NewTermQuery(id).Field("id")).
		Sort([]ftsquery.SortField{{Field: "meta.lastUpdated", Descending: true}})
	if since != nil {
		builder.Add(search.NewDateRangeQuery().Start(since.UTC().Format(time.RFC3339)).Field("meta.lastUpdated"))
	}

	res, err := l.GW.SearchQuery(ctx, versionsIndex, builder.Query(), builder.SearchOptions())
	if err != nil {
		return nil, err
	}

	var keys []string
	for res.Next() {
		keys = append(keys, res.Row().ID)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	kv, err := l.GW.KV(tenant, versionsScope, versionsCollection)
	if err != nil {
		return nil, err
	}
	docs, err := kv.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	versions := make([]*model.Version, 0, len(keys))
	for _, k := range keys {
		doc, ok := docs[k]
		if !ok {
			continue
		}
		rt, vid, ok := splitVersionKey(k)
		if !ok {
			continue
		}
		versions = append(versions, model.VersionFromDocument(doc, rt, id, vid))
	}
	return versions, nil
}

// splitVersionKey splits a Versions collection key "type/id/versionId"
// into resourceType and versionId (id is already known to the caller).
func splitVersionKey(key string) (resourceType, versionID string, ok bool) {
	firstSlash := -1
	lastSlash := -1
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			if firstSlash < 0 {
				firstSlash = i
			}
			lastSlash = i
		}
	}
	if firstSlash < 0 || lastSlash <= firstSlash {
		return "", "", false
	}
	return key[:firstSlash], key[lastSlash+1:], true
}
