package pagination

import (
	"context"
	"testing"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/model"
)

type fakeKV struct {
	docs map[string]map[string]interface{}
	failUpsert error
}

func newFakeKV() *fakeKV { return &fakeKV{docs: map[string]map[string]interface{}{}} }

func (f *fakeKV) Get(ctx context.Context, key string) (map[string]interface{}, error) {
	doc, ok := f.docs[key]
	if !ok {
		return nil, apierr.New(apierr.NotFound, "missing")
	}
	return doc, nil
}

func (f *fakeKV) Upsert(ctx context.Context, key string, value interface{}) error {
	if f.failUpsert != nil {
		return f.failUpsert
	}
	doc := value.(map[string]interface{})
	f.docs[key] = doc
	return nil
}

func TestStoreThenLoadRoundTrip(t *testing.T) {
	fk := newFakeKV()
	cache := New(fk)

	state := model.PaginationState{
		SearchType:      model.SearchTypeRegular,
		ResourceType:    "Patient",
		AllDocumentKeys: []string{"Patient/1", "Patient/2"},
		PageSize:        50,
		BucketName:      "demo",
		BaseURL:         "/fhir/demo/Patient",
		CreatedAt:       "2026-01-01T00:00:00Z",
	}

	token, err := cache.Store(context.Background(), state)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := cache.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ResourceType != "Patient" || len(got.AllDocumentKeys) != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadMissingTokenReturnsGone(t *testing.T) {
	cache := New(newFakeKV())
	_, err := cache.Load(context.Background(), "unknown-token")
	if !apierr.Is(err, apierr.Gone) {
		t.Fatalf("expected Gone, got %v", err)
	}
}
