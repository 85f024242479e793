// Package searchparam implements the Search-Parameter Helpers component
// (spec §4.F): one helper per FHIR search type, each emitting an FTS clause
// tree (a gocb/v2/search.Query) from schema reflection plus the parsed
// FHIRPath expression. Built fresh for this spec — no teacher file speaks
// FTS DSL — but following the teacher's one-function-per-search-type
// dispatch shape from search.go/search_query_builder.go, retargeted from
// SQL fragments to gocb's typed FTS query builder.
package searchparam

import (
	"strconv"
	"strings"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/model"
)

// Token emits the FTS clause for a token-typed search parameter, per spec
// §4.F's Token rules. not negates the whole result (:not modifier).
func Token(schema *model.Schema, resourceType, paramName string, values []string, parsed *fhirpath.ParsedExpression, not bool) (search.Query, error) {
	el, ok := schema.Lookup(resourceType, paramName)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown search parameter %q on %s", paramName, resourceType)
	}

	var perValue []search.Query
	for _, raw := range values {
		system, code, systemConstrained := parseTokenValue(raw)
		q, err := tokenClause(el, system, code, systemConstrained)
		if err != nil {
			return nil, err
		}
		perValue = append(perValue, q)
	}
	if len(perValue) == 0 {
		return nil, apierr.Newf(apierr.InvalidRequest, "no values for token parameter %q", paramName)
	}

	result := disjoin(perValue)
	if not {
		result = search.NewBooleanQuery().MustNot(search.NewDisjunctionQuery(result))
	}
	return result, nil
}

// parseTokenValue splits a token input value on '|'. An absent '|' means
// "match regardless of system" (systemConstrained=false); a trailing
// '|code' (empty left side) means "code without system" — system =="" and
// systemConstrained=true so the caller emits a system-absent clause rather
// than ignoring system entirely.
func parseTokenValue(raw string) (system, code string, systemConstrained bool) {
	idx := strings.Index(raw, "|")
	if idx < 0 {
		return "", raw, false
	}
	return raw[:idx], raw[idx+1:], true
}

func tokenClause(el model.Element, system, code string, systemConstrained bool) (search.Query, error) {
	switch el.Type {
	case model.ElementCodeableConcept:
		return compositeTokenClause(el.Path+".coding", system, code, systemConstrained), nil
	case model.ElementCoding:
		return compositeTokenClause(el.Path, system, code, systemConstrained), nil
	case model.ElementIdentifier:
		return identifierClause(el.Path, system, code, systemConstrained), nil
	case model.ElementPrimitiveBoolean:
		b, err := strconv.ParseBool(code)
		if err != nil {
			return nil, apierr.Newf(apierr.InvalidRequest, "invalid boolean token value %q", code)
		}
		return search.NewBooleanFieldQuery(b).Field(el.Path), nil
	case model.ElementPrimitiveCode, model.ElementPrimitiveString, model.ElementPrimitiveURI:
		return search.NewTermQuery(code).Field(el.Path), nil
	default:
		return search.NewTermQuery(code).Field(el.Path), nil
	}
}

// compositeTokenClause handles CodeableConcept/Coding shapes, whose code
// lives at "<path>.code" and system at "<path>.system".
func compositeTokenClause(path, system, code string, systemConstrained bool) search.Query {
	codeClause := search.NewTermQuery(code).Field(path + ".code")
	if !systemConstrained {
		return codeClause
	}
	if system == "" {
		// "|code": code without a system present.
		return search.NewBooleanQuery().
			Must(search.NewConjunctionQuery(codeClause)).
			MustNot(search.NewDisjunctionQuery(search.NewWildcardQuery("*").Field(path + ".system")))
	}
	sysClause := search.NewTermQuery(system).Field(path + ".system")
	return search.NewConjunctionQuery(codeClause, sysClause)
}

// identifierClause mirrors compositeTokenClause for Identifier elements,
// whose value lives at "<path>.value" and system at "<path>.system".
func identifierClause(path, system, code string, systemConstrained bool) search.Query {
	valueClause := search.NewTermQuery(code).Field(path + ".value")
	if !systemConstrained {
		return valueClause
	}
	if system == "" {
		return search.NewBooleanQuery().
			Must(search.NewConjunctionQuery(valueClause)).
			MustNot(search.NewDisjunctionQuery(search.NewWildcardQuery("*").Field(path + ".system")))
	}
	sysClause := search.NewTermQuery(system).Field(path + ".system")
	return search.NewConjunctionQuery(valueClause, sysClause)
}

// disjoin ORs a slice of queries, collapsing to the single element when
// there's exactly one.
func disjoin(queries []search.Query) search.Query {
	if len(queries) == 1 {
		return queries[0]
	}
	return search.NewDisjunctionQuery(queries...)
}

// conjoin ANDs a slice of queries, collapsing to the single element when
// there's exactly one.
func conjoin(queries []search.Query) search.Query {
	if len(queries) == 1 {
		return queries[0]
	}
	return search.NewConjunctionQuery(queries...)
}
