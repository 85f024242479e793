// Package ftsquery implements the FTS Query Builder component (spec §4.G):
// assembling the final FTS request from the clauses search-parameter
// helpers emit, plus the N1QL wrapper used for the rare full-document and
// count shapes. Built fresh for this spec in the accumulator idiom of the
// teacher's search_query_builder.go (Add/ApplyParam/CountSQL/DataSQL),
// retargeted from SQL string assembly to gocb's typed FTS query builder.
package ftsquery

import (
	"fmt"

	"github.com/couchbase/gocb/v2"
	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

// SortField is one {field, descending} pair translated directly into the
// FTS sort array.
type SortField struct {
	Field      string
	Descending bool
}

// Builder accumulates helper clauses for one search and assembles the final
// FTS request. The resourceType term-match is mandatory and always
// conjoined, per spec §4.G's invariant ("several FHIR types co-locate in
// one collection").
type Builder struct {
	resourceType string
	clauses      []search.Query
	from, size   int
	sort         []SortField
}

// New starts a builder for resourceType with the default size cap.
func New(resourceType string, defaultSize int) *Builder {
	return &Builder{resourceType: resourceType, size: defaultSize}
}

// Add conjoins an additional helper clause (spec §4.G step 1: "conjoined
// with all helper clauses").
func (b *Builder) Add(q search.Query) *Builder {
	if q != nil {
		b.clauses = append(b.clauses, q)
	}
	return b
}

// From sets the FTS "from" offset.
func (b *Builder) From(n int) *Builder {
	b.from = n
	return b
}

// Size sets the FTS result size cap.
func (b *Builder) Size(n int) *Builder {
	b.size = n
	return b
}

// Sort sets the sort field list; nil/empty means no explicit sort.
func (b *Builder) Sort(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// Query assembles the final FTS query: a mandatory term-match on
// resourceType conjoined with every helper clause.
func (b *Builder) Query() search.Query {
	terms := make([]search.Query, 0, len(b.clauses)+1)
	terms = append(terms, search.NewTermQuery(b.resourceType).Field("resourceType"))
	terms = append(terms, b.clauses...)
	if len(terms) == 1 {
		return terms[0]
	}
	return search.NewConjunctionQuery(terms...)
}

// sortArray translates the sort field list into gocb's expected
// []interface{} sort specification (a string field name prefixed with "-"
// for descending, per the FTS sort-array convention).
func (b *Builder) sortArray() []interface{} {
	if len(b.sort) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(b.sort))
	for _, s := range b.sort {
		if s.Descending {
			out = append(out, "-"+s.Field)
		} else {
			out = append(out, s.Field)
		}
	}
	return out
}

// SearchOptions returns the gocb FTS options for the ID-only shape (spec
// §4.G's preferred path): from/size/sort applied, no field projection so
// only document IDs and scores come back.
func (b *Builder) SearchOptions() *gocb.SearchOptions {
	opts := &gocb.SearchOptions{
		Limit: b.size,
		Skip:  b.from,
	}
	if sorted := b.sortArray(); sorted != nil {
		opts.Sort = sorted
	}
	return opts
}

// CountOptions returns options for the count shape: size 0, used when the
// request asks for accurate totals rather than an FTS-reported estimate.
func (b *Builder) CountOptions() *gocb.SearchOptions {
	return &gocb.SearchOptions{Limit: 0, Skip: 0}
}

// Validate enforces the builder's sole invariant: it never emits a query
// without the resourceType clause, which by construction of New/Query
// cannot happen — kept as an explicit guard for callers that hand-build a
// Builder via struct literal in tests.
func (b *Builder) Validate() error {
	if b.resourceType == "" {
		return apierr.New(apierr.Internal, "ftsquery.Builder missing resourceType")
	}
	return nil
}

func (b *Builder) String() string {
	return fmt.Sprintf("ftsquery(resourceType=%s clauses=%d from=%d size=%d)", b.resourceType, len(b.clauses), b.from, b.size)
}
