package searchengine

import (
	"context"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/ftsquery"
	"github.com/fhir-gateway/gateway/internal/model"
)

// resolveChain implements one "field.subParam=value" chained filter: run a
// sub-search on the reference target type for subParam, then constrain the
// outer query to resources whose field points at one of those matches.
// Embedding an explicit target-type hint in the chain expression itself
// (e.g. "subject:Patient.family") is not supported — the field's schema-
// declared reference target is used instead, matching the Reference
// helper's own bare-id resolution rule.
func (e *Engine) resolveChain(ctx context.Context, resourceType string, cf ChainedFilter) (search.Query, error) {
	el, ok := e.Schema.Lookup(resourceType, cf.Field)
	if !ok || el.Type != model.ElementReference {
		return nil, apierr.Newf(apierr.InvalidRequest, "chained parameter %q is not a reference field on %s", cf.Field, resourceType)
	}
	if len(el.ReferenceTypes) != 1 {
		return nil, apierr.Newf(apierr.InvalidRequest, "chained parameter %q on %s has an ambiguous reference target", cf.Field, resourceType)
	}
	targetType := el.ReferenceTypes[0]

	targetKeys, err := e.searchIDs(ctx, targetType, cf.SubParam, cf.Values)
	if err != nil {
		return nil, err
	}
	if len(targetKeys) == 0 {
		// No target matched: the chain can never be satisfied. A term
		// query against a sentinel value that can't appear keeps the
		// outer query well-formed while matching nothing.
		return search.NewTermQuery("\x00no-match\x00").Field(el.Path + ".reference"), nil
	}

	clauses := make([]search.Query, 0, len(targetKeys))
	for _, k := range targetKeys {
		clauses = append(clauses, search.NewTermQuery(k).Field(el.Path+".reference"))
	}
	return search.NewDisjunctionQuery(clauses...), nil
}

// searchIDs runs a single-parameter FTS search against targetType and
// returns the matching document keys, used by chained search to resolve
// the target side before constraining the outer query.
func (e *Engine) searchIDs(ctx context.Context, targetType, paramName string, values []string) ([]string, error) {
	index, err := e.Router.FTSIndex(targetType)
	if err != nil {
		return nil, err
	}
	q, err := e.dispatch(targetType, ParamFilter{Name: paramName, Values: values})
	if err != nil {
		return nil, err
	}
	builder := ftsquery.New(targetType, e.FTSLimit).Add(q)
	keys, _, err := e.Search.Search(ctx, index, builder)
	return keys, err
}
