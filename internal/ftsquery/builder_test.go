package ftsquery

import (
	"testing"

	"github.com/couchbase/gocb/v2/search"
)

func TestQueryAlwaysIncludesResourceType(t *testing.T) {
	b := New("Patient", 1000)
	q := b.Query()
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestAddConjoinsClauses(t *testing.T) {
	b := New("Patient", 1000).Add(search.NewTermQuery("Smith").Field("name.family"))
	if err := b.Validate(); err != nil {
		t.Fatalf("unexpected validate error: %v", err)
	}
	q := b.Query()
	if q == nil {
		t.Fatal("expected conjunction query")
	}
}

func TestSortArrayAppliesDescendingPrefix(t *testing.T) {
	b := New("Patient", 10).Sort([]SortField{{Field: "meta.lastUpdated", Descending: true}})
	opts := b.SearchOptions()
	if len(opts.Sort) != 1 || opts.Sort[0] != "-meta.lastUpdated" {
		t.Fatalf("got %+v", opts.Sort)
	}
}

func TestCountOptionsZeroSize(t *testing.T) {
	b := New("Patient", 1000)
	opts := b.CountOptions()
	if opts.Limit != 0 {
		t.Fatalf("expected limit 0, got %d", opts.Limit)
	}
}
