package searchparam

import (
	"strings"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/model"
)

// String emits the FTS clause for a string-typed search parameter, per spec
// §4.F's String rules: composite types expand to their sub-fields via
// schema reflection, :exact targets the "*Exact" field variant, the
// default is a case-insensitive prefix match, and union alternatives are
// OR-ed across fields.
func String(schema *model.Schema, resourceType, paramName string, values []string, parsed *fhirpath.ParsedExpression, exact bool) (search.Query, error) {
	fields, err := stringFields(schema, resourceType, paramName, parsed)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apierr.Newf(apierr.InvalidRequest, "no string fields resolved for %q on %s", paramName, resourceType)
	}

	var perValue []search.Query
	for _, v := range values {
		var perField []search.Query
		for _, f := range fields {
			if exact {
				perField = append(perField, search.NewTermQuery(v).Field(f+"Exact"))
			} else {
				perField = append(perField, search.NewPrefixQuery(strings.ToLower(v)).Field(f))
			}
		}
		perValue = append(perValue, disjoin(perField))
	}
	return disjoin(perValue), nil
}

// stringFields expands a string parameter's parsed expression to the set of
// leaf fields it should be matched against, consulting schema reflection
// for composite element types and flattening UNION alternatives.
func stringFields(schema *model.Schema, resourceType, paramName string, parsed *fhirpath.ParsedExpression) ([]string, error) {
	if parsed != nil && parsed.Kind == fhirpath.Union {
		var all []string
		for _, alt := range parsed.Alternatives {
			subFields, err := leafStringFields(schema, resourceType, paramName, alt.Path)
			if err != nil {
				return nil, err
			}
			all = append(all, subFields...)
		}
		return all, nil
	}

	path := paramName
	if parsed != nil {
		path = parsed.Path
	}
	return leafStringFields(schema, resourceType, paramName, path)
}

func leafStringFields(schema *model.Schema, resourceType, paramName, path string) ([]string, error) {
	el, ok := schema.Lookup(resourceType, paramName)
	if !ok {
		return []string{path}, nil
	}
	subs, ok := model.StringSubFields[el.Type]
	if !ok {
		return []string{path}, nil
	}
	fields := make([]string, 0, len(subs))
	for _, sub := range subs {
		fields = append(fields, path+"."+sub)
	}
	return fields, nil
}
