package searchparam

import (
	"strconv"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/model"
)

var quantityPrefixes = map[string]bool{"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true, "ap": true}

// Quantity emits the FTS clause for a quantity-typed search parameter, per
// spec §4.F's Quantity rules: parse the prefix and numeric value, expand
// the path to Quantity/SimpleQuantity leaves (adding ".value"), and emit a
// numeric-range clause per leaf, disjoined. "ap" widens by +-10%.
func Quantity(schema *model.Schema, resourceType, paramName string, values []string, parsed *fhirpath.ParsedExpression) (search.Query, error) {
	el, ok := schema.Lookup(resourceType, paramName)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown search parameter %q on %s", paramName, resourceType)
	}
	field := el.Path + ".value"

	var perValue []search.Query
	for _, raw := range values {
		prefix, numStr := splitQuantityPrefix(raw)
		n, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil, apierr.Newf(apierr.InvalidRequest, "invalid quantity value %q", raw)
		}
		perValue = append(perValue, quantityClause(field, prefix, n))
	}
	return disjoin(perValue), nil
}

func splitQuantityPrefix(raw string) (prefix, rest string) {
	if len(raw) >= 2 && quantityPrefixes[raw[:2]] {
		return raw[:2], raw[2:]
	}
	return "eq", raw
}

func quantityClause(field, prefix string, n float64) search.Query {
	switch prefix {
	case "gt":
		return search.NewNumericRangeQuery().Min(n).Field(field)
	case "ge":
		return search.NewNumericRangeQuery().Min(n).Field(field)
	case "lt":
		return search.NewNumericRangeQuery().Max(n).Field(field)
	case "le":
		return search.NewNumericRangeQuery().Max(n).Field(field)
	case "ap":
		delta := n * 0.1
		return search.NewNumericRangeQuery().Min(n - delta).Max(n + delta).Field(field)
	case "ne":
		return search.NewBooleanQuery().MustNot(search.NewDisjunctionQuery(
			search.NewNumericRangeQuery().Min(n).Max(n).Field(field),
		))
	default: // eq
		return search.NewNumericRangeQuery().Min(n).Max(n).Field(field)
	}
}
