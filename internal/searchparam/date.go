package searchparam

import (
	"time"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/model"
)

var datePrefixes = map[string]bool{"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true}

// Date emits the FTS clause for a date-typed search parameter, per spec
// §4.F's Date rules: parse the prefix into inclusive/exclusive bounds,
// expand the target path via the parser's choice-type expansion, and emit
// a date-range query for DateTime leaves or a period-overlap query for
// Period leaves, disjoined across leaves.
func Date(parser *fhirpath.Parser, schema *model.Schema, resourceType, paramName string, values []string, parsed *fhirpath.ParsedExpression) (search.Query, error) {
	el, ok := schema.Lookup(resourceType, paramName)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown search parameter %q on %s", paramName, resourceType)
	}

	leaves := resolveDateLeaves(parser, resourceType, el)

	var perValue []search.Query
	for _, raw := range values {
		prefix, dateStr := splitDatePrefix(raw)
		start, end, err := parseFlexDate(dateStr)
		if err != nil {
			return nil, apierr.Newf(apierr.InvalidRequest, "invalid date value %q", raw)
		}

		var perLeaf []search.Query
		for _, leaf := range leaves {
			if leaf.IsPeriod {
				perLeaf = append(perLeaf, periodOverlapClause(leaf.Field, prefix, start, end))
			} else {
				perLeaf = append(perLeaf, dateTimeClause(leaf.Field, prefix, start, end))
			}
		}
		perValue = append(perValue, disjoin(perLeaf))
	}
	return conjoin(perValue), nil
}

func resolveDateLeaves(parser *fhirpath.Parser, resourceType string, el model.Element) []model.ChoiceTypeLeaf {
	if len(el.ChoiceTypes) == 0 {
		return []model.ChoiceTypeLeaf{{Field: el.Path, IsPeriod: el.Type == model.ElementPeriod}}
	}
	return parser.ExpandChoice(resourceType, el.Path, el.ChoiceTypes)
}

func splitDatePrefix(raw string) (prefix, rest string) {
	if len(raw) >= 2 && datePrefixes[raw[:2]] {
		return raw[:2], raw[2:]
	}
	return "eq", raw
}

func dateTimeClause(field, prefix string, start, end time.Time) search.Query {
	switch prefix {
	case "gt", "ge":
		return search.NewDateRangeQuery().Start(start.Format(time.RFC3339)).Field(field)
	case "lt", "le":
		return search.NewDateRangeQuery().End(end.Format(time.RFC3339)).Field(field)
	case "ne":
		return search.NewBooleanQuery().MustNot(search.NewDisjunctionQuery(
			search.NewDateRangeQuery().Start(start.Format(time.RFC3339)).End(end.Format(time.RFC3339)).Field(field),
		))
	default: // eq
		return search.NewDateRangeQuery().Start(start.Format(time.RFC3339)).End(end.Format(time.RFC3339)).Field(field)
	}
}

// periodOverlapClause implements spec §4.F's period-overlap algorithm: for
// a bounded range [S,E] emit conjuncts(start <= E, end >= S); for gt/ge
// emit start >= v; for lt/le emit end <= v.
func periodOverlapClause(field, prefix string, start, end time.Time) search.Query {
	startField, endField := field+".start", field+".end"
	switch prefix {
	case "gt", "ge":
		return search.NewDateRangeQuery().Start(start.Format(time.RFC3339)).Field(startField)
	case "lt", "le":
		return search.NewDateRangeQuery().End(end.Format(time.RFC3339)).Field(endField)
	default: // eq/ne treated as a bounded overlap window
		startLE := search.NewDateRangeQuery().End(end.Format(time.RFC3339)).Field(startField)
		endGE := search.NewDateRangeQuery().Start(start.Format(time.RFC3339)).Field(endField)
		overlap := search.NewConjunctionQuery(startLE, endGE)
		if prefix == "ne" {
			return search.NewBooleanQuery().MustNot(search.NewDisjunctionQuery(overlap))
		}
		return overlap
	}
}

// parseFlexDate parses a FHIR partial date/dateTime (year, year-month,
// date, or full RFC 3339) and returns the inclusive [start, end) window
// that precision implies — a bare "2025" means anywhere in that year.
func parseFlexDate(s string) (time.Time, time.Time, error) {
	layouts := []struct {
		layout string
		unit   func(time.Time) time.Time
	}{
		{time.RFC3339, func(t time.Time) time.Time { return t }},
		{"2006-01-02T15:04:05", func(t time.Time) time.Time { return t }},
		{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
		{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
		{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
	}
	for _, l := range layouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t.UTC(), l.unit(t).UTC(), nil
		}
	}
	return time.Time{}, time.Time{}, apierr.Newf(apierr.InvalidRequest, "unparseable date %q", s)
}
