package searchengine

import (
	"context"

	"github.com/fhir-gateway/gateway/internal/ftsquery"
	"github.com/fhir-gateway/gateway/internal/gateway"
)

// GatewayAdapter binds a Gateway plus a fixed tenant and scope to the
// Searcher/Fetcher interfaces the Engine depends on. One adapter is built
// per request (tenant is only known once the request arrives); the Engine
// itself stays tenant-agnostic and is shared across every request.
type GatewayAdapter struct {
	GW     *gateway.Gateway
	Tenant string
	Scope  string
}

// Search runs b's assembled FTS query and returns hit keys in rank order
// plus the FTS-reported total hit count from the result metadata.
func (a *GatewayAdapter) Search(ctx context.Context, index string, b *ftsquery.Builder) ([]string, int, error) {
	res, err := a.GW.SearchQuery(ctx, index, b.Query(), b.SearchOptions())
	if err != nil {
		return nil, 0, err
	}

	var keys []string
	for res.Next() {
		keys = append(keys, res.Row().ID)
	}
	if err := res.Err(); err != nil {
		return nil, 0, err
	}

	total := len(keys)
	if md, err := res.MetaData(); err == nil {
		total = int(md.Metrics.TotalHits)
	}
	return keys, total, nil
}

// BatchGet fetches keys from collection under the adapter's tenant/scope.
func (a *GatewayAdapter) BatchGet(ctx context.Context, collection string, keys []string) (map[string]map[string]interface{}, error) {
	kv, err := a.GW.KV(a.Tenant, a.Scope, collection)
	if err != nil {
		return nil, err
	}
	return kv.BatchGet(ctx, keys)
}
