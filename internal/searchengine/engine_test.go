package searchengine

import (
	"context"
	"net/url"
	"testing"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/ftsquery"
	"github.com/fhir-gateway/gateway/internal/model"
	"github.com/fhir-gateway/gateway/internal/router"
)

type fakeSearcher struct {
	byIndex map[string][]string
}

func (f *fakeSearcher) Search(ctx context.Context, index string, b *ftsquery.Builder) ([]string, int, error) {
	keys := f.byIndex[index]
	return keys, len(keys), nil
}

type fakeFetcher struct {
	docs map[string]map[string]interface{}
}

func (f *fakeFetcher) BatchGet(ctx context.Context, collection string, keys []string) (map[string]map[string]interface{}, error) {
	out := make(map[string]map[string]interface{})
	for _, k := range keys {
		if d, ok := f.docs[k]; ok {
			out[k] = d
		}
	}
	return out, nil
}

type fakeCache struct {
	stored map[string]model.PaginationState
}

func (f *fakeCache) Store(ctx context.Context, state model.PaginationState) (string, error) {
	if f.stored == nil {
		f.stored = make(map[string]model.PaginationState)
	}
	token := "tok-1"
	f.stored[token] = state
	return token, nil
}

func (f *fakeCache) Load(ctx context.Context, token string) (*model.PaginationState, error) {
	s := f.stored[token]
	return &s, nil
}

func testSchema() *model.Schema {
	return model.NewSchema(map[string]map[string]model.Element{
		"Patient": {
			"family": {Path: "name.family", Type: model.ElementPrimitiveString},
		},
	})
}

func testDoc(resourceType, id string) map[string]interface{} {
	return map[string]interface{}{"resourceType": resourceType, "id": id}
}

func newTestEngine(searcher *fakeSearcher, fetcher *fakeFetcher, cache *fakeCache) *Engine {
	schema := testSchema()
	parser := fhirpath.New(schema)
	r := router.Default()
	return New(r, schema, parser, searcher, fetcher, cache, 1000, 10, 100)
}

func TestFreshSearchMaterializesPageAndStoresState(t *testing.T) {
	searcher := &fakeSearcher{byIndex: map[string][]string{
		"patient_idx": {"Patient/1", "Patient/2"},
	}}
	fetcher := &fakeFetcher{docs: map[string]map[string]interface{}{
		"Patient/1": testDoc("Patient", "1"),
		"Patient/2": testDoc("Patient", "2"),
	}}
	cache := &fakeCache{}
	e := newTestEngine(searcher, fetcher, cache)

	bundle, err := e.Search(context.Background(), "Patient", url.Values{"family": {"Smith"}}, "http://x/fhir/t/Patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle.Entry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(bundle.Entry))
	}
	if bundle.Entry[0].Search.Mode != "match" {
		t.Fatalf("expected match mode, got %s", bundle.Entry[0].Search.Mode)
	}
	if len(cache.stored) != 1 {
		t.Fatalf("expected pagination state stored once, got %d", len(cache.stored))
	}
}

func TestContinuationPageDoesNotRerunSearch(t *testing.T) {
	searcher := &fakeSearcher{byIndex: map[string][]string{}}
	fetcher := &fakeFetcher{docs: map[string]map[string]interface{}{
		"Patient/3": testDoc("Patient", "3"),
	}}
	cache := &fakeCache{stored: map[string]model.PaginationState{
		"tok-1": {
			ResourceType:    "Patient",
			AllDocumentKeys: []string{"Patient/3"},
			BaseURL:         "http://x/fhir/t/Patient",
		},
	}}
	e := newTestEngine(searcher, fetcher, cache)

	bundle, err := e.Search(context.Background(), "Patient", url.Values{"_page": {"tok-1"}, "_count": {"10"}}, "http://x/fhir/t/Patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle.Entry) != 1 {
		t.Fatalf("expected 1 entry from stored keys, got %d", len(bundle.Entry))
	}
}

func TestUnknownResourceTypeRejected(t *testing.T) {
	e := newTestEngine(&fakeSearcher{}, &fakeFetcher{}, &fakeCache{})
	if _, err := e.Search(context.Background(), "NotAType", url.Values{}, "http://x"); err == nil {
		t.Fatal("expected error for unrouted resource type")
	}
}

func TestMissingClauseBuildsWithoutError(t *testing.T) {
	if q := missingClause("name.family", true); q == nil {
		t.Fatal("expected non-nil query")
	}
	var _ search.Query = missingClause("x", false)
}
