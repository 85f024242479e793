package searchengine

import (
	"context"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/ftsquery"
)

// resolveRevInclude implements one _revinclude=SourceType:field directive:
// find SourceType resources whose field references any of the primary
// matches, and return their keys for the second-pass materialize step.
func (e *Engine) resolveRevInclude(ctx context.Context, targetResourceType, spec string, primaryKeys []string) ([]string, error) {
	sourceType, field, err := parseIncludeSpec(spec)
	if err != nil {
		return nil, err
	}
	if len(primaryKeys) == 0 {
		return nil, nil
	}

	el, ok := e.Schema.Lookup(sourceType, field)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown revinclude field %q on %s", field, sourceType)
	}

	index, err := e.Router.FTSIndex(sourceType)
	if err != nil {
		return nil, err
	}

	clauses := make([]search.Query, 0, len(primaryKeys))
	for _, k := range primaryKeys {
		clauses = append(clauses, search.NewTermQuery(k).Field(el.Path+".reference"))
	}

	builder := ftsquery.New(sourceType, e.FTSLimit).Add(search.NewDisjunctionQuery(clauses...))
	keys, _, err := e.Search.Search(ctx, index, builder)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
