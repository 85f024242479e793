package searchengine

import (
	"context"
	"net/url"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/ftsquery"
	"github.com/fhir-gateway/gateway/internal/model"
	"github.com/fhir-gateway/gateway/internal/pagination"
)

// compartmentFieldCandidates lists the conventional reference field names
// used to scope a related resource type to one patient, tried in order;
// the first one declared in the schema for a given type wins. This mirrors
// the common FHIR "Patient compartment" membership rule without requiring
// a full CompartmentDefinition table, per spec §9 Open Question #3's
// narrowed scope for $everything.
var compartmentFieldCandidates = []string{"patient", "subject"}

// Everything implements the $everything operation (spec §4.H.3.d): the
// named resource plus every related type the router has configured for
// the patient compartment, each filtered to resources referencing it.
func (e *Engine) Everything(ctx context.Context, resourceType, id string, query url.Values, baseURL string) (*model.Bundle, error) {
	classified := Classify(query, e.DefaultPageSize, e.MaxPageSize)
	p := pagination.Params{Count: classified.Count, Offset: classified.Offset, Page: classified.Page}

	if classified.Page != "" {
		return e.continuePage(ctx, classified.Page, p, classified.Total, classified.Summary)
	}

	focalKey := resourceType + "/" + id
	focalDocs, err := e.batchFetchMixed(ctx, []string{focalKey})
	if err != nil {
		return nil, err
	}
	if _, ok := focalDocs[focalKey]; !ok {
		return nil, apierr.Newf(apierr.NotFound, "%s not found", focalKey)
	}

	allKeys := []string{focalKey}
	for _, relType := range e.Router.EverythingTypes() {
		keys, err := e.compartmentMembers(ctx, relType, focalKey)
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, keys...)
	}

	collection, _ := e.Router.TargetCollection(resourceType)
	state := model.PaginationState{
		SearchType:           model.SearchTypeEverything,
		ResourceType:         resourceType,
		AllDocumentKeys:      allKeys,
		PageSize:             p.Count,
		BucketName:           collection,
		BaseURL:              baseURL,
		PrimaryResourceCount: 1,
		CreatedAt:            model.NowRFC3339(),
	}
	token, cacheErr := e.Cache.Store(ctx, state)

	page := sliceWindow(allKeys, p.Offset, p.Count)
	docs, err := e.batchFetchMixed(ctx, page)
	if err != nil {
		return nil, err
	}

	entries := make([]model.BundleEntry, 0, len(page))
	for _, k := range page {
		doc, ok := docs[k]
		if !ok {
			continue
		}
		mode := "include"
		if k == focalKey {
			mode = "match"
		}
		entries = append(entries, model.BundleEntry{
			FullURL:  doc["resourceType"].(string) + "/" + doc["id"].(string),
			Resource: projectSummary(doc, classified.Summary),
			Search:   &model.BundleSearch{Mode: mode},
		})
	}

	total := totalFor(classified.Total, len(allKeys))
	var links []model.BundleLink
	if cacheErr == nil {
		links = bundleLinks(pagination.Links(baseURL, token, p, len(allKeys)))
	}
	return model.NewSearchBundle(entries, links, total), nil
}

// compartmentMembers finds relType resources referencing focalKey through
// whichever conventional compartment field the schema declares for that
// type; a type declaring neither is silently skipped.
func (e *Engine) compartmentMembers(ctx context.Context, relType, focalKey string) ([]string, error) {
	for _, fieldParam := range compartmentFieldCandidates {
		el, ok := e.Schema.Lookup(relType, fieldParam)
		if !ok {
			continue
		}
		index, err := e.Router.FTSIndex(relType)
		if err != nil {
			return nil, nil
		}
		q := search.NewTermQuery(focalKey).Field(el.Path + ".reference")
		builder := ftsquery.New(relType, e.FTSLimit).Add(q)
		keys, _, err := e.Search.Search(ctx, index, builder)
		if err != nil {
			return nil, err
		}
		return keys, nil
	}
	return nil, nil
}
