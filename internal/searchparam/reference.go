package searchparam

import (
	"strings"

	"github.com/couchbase/gocb/v2/search"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/model"
)

// Reference emits the FTS clause for a reference-typed search parameter,
// per spec §4.F's Reference rules: parse "ResourceType/id" or a bare id; a
// bare id is only accepted when the parameter's target set has exactly one
// type.
func Reference(schema *model.Schema, resourceType, paramName string, values []string, parsed *fhirpath.ParsedExpression) (search.Query, error) {
	el, ok := schema.Lookup(resourceType, paramName)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown search parameter %q on %s", paramName, resourceType)
	}

	var perValue []search.Query
	for _, raw := range values {
		resolved, err := resolveReferenceValue(raw, el.ReferenceTypes)
		if err != nil {
			return nil, err
		}
		perValue = append(perValue, search.NewTermQuery(resolved).Field(el.Path+".reference"))
	}
	return disjoin(perValue), nil
}

// resolveReferenceValue prepends the unique target type to a bare id, or
// fails with InvalidRequest if the target set is ambiguous.
func resolveReferenceValue(raw string, targetTypes []string) (string, error) {
	if strings.Contains(raw, "/") {
		return raw, nil
	}
	if len(targetTypes) != 1 {
		return "", apierr.Newf(apierr.InvalidRequest, "ambiguous reference %q without a target type", raw)
	}
	return targetTypes[0] + "/" + raw, nil
}
