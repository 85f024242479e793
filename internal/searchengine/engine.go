// Package searchengine implements the Search Engine component (spec §4.H):
// the orchestrator that classifies query parameters, dispatches to the
// search-parameter helpers to assemble an FTS query, runs the fresh-search
// or continuation-page path, materializes hits into resources, and
// assembles the resulting Bundle. Built fresh for this spec — no single
// teacher file plays this role — but composed from the teacher's
// include.go/revinclude.go/chain.go/everything.go companions, each kept as
// its own file in the same shape.
package searchengine

import (
	"context"
	"net/url"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/ftsquery"
	"github.com/fhir-gateway/gateway/internal/model"
	"github.com/fhir-gateway/gateway/internal/pagination"
	"github.com/fhir-gateway/gateway/internal/router"
	"github.com/fhir-gateway/gateway/internal/searchparam"
)

// Searcher is the narrow FTS contract the engine needs. A production
// Gateway-backed adapter (see adapter.go) and a fake (see engine_test.go)
// both satisfy it structurally.
type Searcher interface {
	// Search runs an FTS query against index restricted to resourceType's
	// collection, returning document keys in rank order and the FTS total
	// hit count for the unrestricted (size-ignoring) match.
	Search(ctx context.Context, index string, b *ftsquery.Builder) (keys []string, total int, err error)
}

// Fetcher is the narrow KV batch-fetch contract the engine needs.
type Fetcher interface {
	BatchGet(ctx context.Context, collection string, keys []string) (map[string]map[string]interface{}, error)
}

// Cache is the narrow pagination-store contract the engine needs.
type Cache interface {
	Store(ctx context.Context, state model.PaginationState) (string, error)
	Load(ctx context.Context, token string) (*model.PaginationState, error)
}

// Engine is the process-wide Search Engine, constructed once at startup
// (spec §9) and shared across requests; it holds no per-request state.
type Engine struct {
	Router *router.Router
	Schema *model.Schema
	Parser *fhirpath.Parser
	Search Searcher
	Fetch  Fetcher
	Cache  Cache

	// FTSLimit is the safety cap on keys an FTS query is allowed to return
	// for a single fresh search (spec §4.H step 2's "ID-only" shape).
	FTSLimit int
	// DefaultPageSize/MaxPageSize bound the materialized page.
	DefaultPageSize int
	MaxPageSize     int
}

// New constructs an Engine from its dependencies.
func New(r *router.Router, schema *model.Schema, parser *fhirpath.Parser, s Searcher, f Fetcher, c Cache, ftsLimit, defaultPageSize, maxPageSize int) *Engine {
	return &Engine{
		Router: r, Schema: schema, Parser: parser,
		Search: s, Fetch: f, Cache: c,
		FTSLimit: ftsLimit, DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize,
	}
}

// Search implements spec §4.H's full algorithm: classify, then either
// continue an existing page (Params.Page set) or run a fresh search,
// materialize the page's keys into resources, and assemble a Bundle.
func (e *Engine) Search(ctx context.Context, resourceType string, query url.Values, baseURL string) (*model.Bundle, error) {
	if !e.Router.Known(resourceType) {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown resource type %q", resourceType)
	}

	classified := Classify(query, e.DefaultPageSize, e.MaxPageSize)
	pagParams := pagination.Params{Count: classified.Count, Offset: classified.Offset, Page: classified.Page}

	if classified.Page != "" {
		return e.continuePage(ctx, classified.Page, pagParams, classified.Total, classified.Summary)
	}
	return e.freshSearch(ctx, resourceType, classified, pagParams, baseURL)
}

// continuePage re-slices a stored key list without touching FTS again —
// spec §4.H's continuation path never re-runs the search or mutates the
// stored state. _summary is re-applied per page since it is a projection
// of the response, not part of the persisted key list.
func (e *Engine) continuePage(ctx context.Context, token string, p pagination.Params, totalMode, summary string) (*model.Bundle, error) {
	state, err := e.Cache.Load(ctx, token)
	if err != nil {
		return nil, err
	}

	keys := sliceWindow(state.AllDocumentKeys, p.Offset, p.Count)
	docs, err := e.batchFetchMixed(ctx, keys)
	if err != nil {
		return nil, err
	}

	entries := make([]model.BundleEntry, 0, len(keys))
	for _, k := range keys {
		doc, ok := docs[k]
		if !ok {
			continue
		}
		entries = append(entries, model.BundleEntry{
			FullURL:  doc["resourceType"].(string) + "/" + doc["id"].(string),
			Resource: projectSummary(doc, summary),
			Search:   &model.BundleSearch{Mode: "match"},
		})
	}

	total := totalFor(totalMode, len(state.AllDocumentKeys))
	links := bundleLinks(pagination.Links(state.BaseURL, token, p, len(state.AllDocumentKeys)))
	return model.NewSearchBundle(entries, links, total), nil
}

// freshSearch runs steps 1-6 of spec §4.H: build the FTS query from
// primary parameters, execute it with the ID-only shape, apply
// _include/_revinclude/chained second passes, store the full key list,
// materialize the requested page, and assemble the Bundle.
func (e *Engine) freshSearch(ctx context.Context, resourceType string, c Classified, p pagination.Params, baseURL string) (*model.Bundle, error) {
	index, err := e.Router.FTSIndex(resourceType)
	if err != nil {
		return nil, err
	}
	collection, err := e.Router.TargetCollection(resourceType)
	if err != nil {
		return nil, err
	}

	builder := ftsquery.New(resourceType, e.FTSLimit)
	for _, pf := range c.Primary {
		q, err := e.dispatch(resourceType, pf)
		if err != nil {
			return nil, err
		}
		builder.Add(q)
	}

	for _, cf := range c.Chained {
		q, err := e.resolveChain(ctx, resourceType, cf)
		if err != nil {
			return nil, err
		}
		builder.Add(q)
	}

	primaryKeys, ftsTotal, err := e.Search.Search(ctx, index, builder)
	if err != nil {
		return nil, err
	}

	searchType := model.SearchTypeRegular
	allKeys := append([]string(nil), primaryKeys...)
	primaryCount := len(primaryKeys)

	for _, spec := range c.Include {
		extra, err := e.resolveInclude(ctx, resourceType, spec, primaryKeys)
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, extra...)
		searchType = model.SearchTypeInclude
	}
	for _, spec := range c.RevInclude {
		extra, err := e.resolveRevInclude(ctx, resourceType, spec, primaryKeys)
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, extra...)
		searchType = model.SearchTypeRevInclude
	}

	state := model.PaginationState{
		SearchType:           searchType,
		ResourceType:         resourceType,
		AllDocumentKeys:      allKeys,
		PageSize:             p.Count,
		BucketName:           collection,
		BaseURL:              baseURL,
		PrimaryResourceCount: primaryCount,
		CreatedAt:            model.NowRFC3339(),
	}

	token, cacheErr := e.Cache.Store(ctx, state)

	page := sliceWindow(allKeys, p.Offset, p.Count)
	docs, err := e.batchFetchMixed(ctx, page)
	if err != nil {
		return nil, err
	}

	primarySet := make(map[string]bool, len(primaryKeys))
	for _, k := range primaryKeys {
		primarySet[k] = true
	}

	entries := make([]model.BundleEntry, 0, len(page))
	for _, k := range page {
		doc, ok := docs[k]
		if !ok {
			continue
		}
		mode := "include"
		if primarySet[k] {
			mode = "match"
		}
		entries = append(entries, model.BundleEntry{
			FullURL:  doc["resourceType"].(string) + "/" + doc["id"].(string),
			Resource: projectSummary(doc, c.Summary),
			Search:   &model.BundleSearch{Mode: mode},
		})
	}

	total := totalFor(c.Total, chooseTotal(c.Total, len(allKeys), ftsTotal))
	var links []model.BundleLink
	if cacheErr == nil {
		links = bundleLinks(pagination.Links(baseURL, token, p, len(allKeys)))
	}
	return model.NewSearchBundle(entries, links, total), nil
}

// dispatch routes one primary parameter occurrence to the matching
// search-parameter helper based on the element's declared type.
func (e *Engine) dispatch(resourceType string, pf ParamFilter) (search.Query, error) {
	el, ok := e.Schema.Lookup(resourceType, pf.Name)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown search parameter %q on %s", pf.Name, resourceType)
	}

	if pf.Modifier == "missing" {
		missing := len(pf.Values) == 1 && pf.Values[0] == "true"
		return missingClause(el.Path, missing), nil
	}

	switch el.Type {
	case model.ElementCodeableConcept, model.ElementCoding, model.ElementIdentifier,
		model.ElementPrimitiveCode, model.ElementPrimitiveBoolean:
		return searchparam.Token(e.Schema, resourceType, pf.Name, pf.Values, nil, pf.Modifier == "not")
	case model.ElementPrimitiveString, model.ElementHumanName, model.ElementAddress,
		model.ElementContactPoint, model.ElementPrimitiveURI:
		parsed := &fhirpath.ParsedExpression{Kind: fhirpath.SimpleField, Path: el.Path}
		return searchparam.String(e.Schema, resourceType, pf.Name, pf.Values, parsed, pf.Modifier == "exact")
	case model.ElementDateTime, model.ElementPeriod, model.ElementDate:
		return searchparam.Date(e.Parser, e.Schema, resourceType, pf.Name, pf.Values, nil)
	case model.ElementQuantity:
		return searchparam.Quantity(e.Schema, resourceType, pf.Name, pf.Values, nil)
	case model.ElementReference:
		return searchparam.Reference(e.Schema, resourceType, pf.Name, pf.Values, nil)
	default:
		return nil, apierr.Newf(apierr.InvalidRequest, "search parameter %q on %s has no dispatchable type", pf.Name, resourceType)
	}
}

// missingClause emits the generic ":missing" clause: "field absent" reuses
// the same wildcard-negation technique the Token helper uses for a bare
// "|code" value; "field present" is the wildcard match itself.
func missingClause(path string, missing bool) search.Query {
	present := search.NewDisjunctionQuery(search.NewWildcardQuery("*").Field(path))
	if missing {
		return search.NewBooleanQuery().MustNot(present)
	}
	return present
}

func sliceWindow(keys []string, offset, count int) []string {
	if offset >= len(keys) {
		return nil
	}
	end := offset + count
	if end > len(keys) {
		end = len(keys)
	}
	return keys[offset:end]
}

func totalFor(mode string, n int) *int {
	if mode == "none" || mode == "" {
		return nil
	}
	v := n
	return &v
}

// chooseTotal picks the accurate materialized key count for "accurate"
// mode and the FTS-reported estimate for "estimate" mode.
func chooseTotal(mode string, materialized, estimate int) int {
	if mode == "estimate" {
		return estimate
	}
	return materialized
}

// batchFetchMixed fetches a key list that may span several resource types
// (and therefore several collections, e.g. an _include pulling in a
// Patient alongside Encounter matches), grouping by the target collection
// before delegating to Fetch.BatchGet.
func (e *Engine) batchFetchMixed(ctx context.Context, keys []string) (map[string]map[string]interface{}, error) {
	byCollection := make(map[string][]string)
	for _, k := range keys {
		resourceType, _, ok := splitKey(k)
		if !ok {
			continue
		}
		collection, err := e.Router.TargetCollection(resourceType)
		if err != nil {
			continue
		}
		byCollection[collection] = append(byCollection[collection], k)
	}

	out := make(map[string]map[string]interface{}, len(keys))
	for collection, group := range byCollection {
		docs, err := e.Fetch.BatchGet(ctx, collection, group)
		if err != nil {
			return nil, err
		}
		for k, v := range docs {
			out[k] = v
		}
	}
	return out, nil
}

// splitKey splits a Resources-collection key "Type/id" into its parts.
func splitKey(key string) (resourceType, id string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

func bundleLinks(links []pagination.Link) []model.BundleLink {
	out := make([]model.BundleLink, 0, len(links))
	for _, l := range links {
		out = append(out, model.BundleLink{Relation: l.Relation, URL: l.URL})
	}
	return out
}
