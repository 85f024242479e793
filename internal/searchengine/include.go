package searchengine

import (
	"context"
	"strings"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

// resolveInclude implements one _include=SourceType:field[:TargetType]
// directive: fetch the primary matches, pull every reference value out of
// field, and return the referenced keys so the engine's second pass can
// materialize them alongside the primary page.
func (e *Engine) resolveInclude(ctx context.Context, resourceType, spec string, primaryKeys []string) ([]string, error) {
	sourceType, field, err := parseIncludeSpec(spec)
	if err != nil {
		return nil, err
	}
	if sourceType != resourceType {
		// _include only applies to the type actually being searched;
		// a mismatched source type is a no-op rather than an error, per
		// the same tolerant-of-irrelevant-params stance spec §4.F takes.
		return nil, nil
	}

	el, ok := e.Schema.Lookup(sourceType, field)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown include field %q on %s", field, sourceType)
	}

	collection, err := e.Router.TargetCollection(sourceType)
	if err != nil {
		return nil, err
	}
	docs, err := e.Fetch.BatchGet(ctx, collection, primaryKeys)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, doc := range docs {
		for _, ref := range extractReferences(doc, el.Path) {
			if !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
		}
	}
	return out, nil
}

// parseIncludeSpec parses "SourceType:field" or "SourceType:field:TargetType"
// (the trailing target-type hint is accepted but not required, since the
// reference value itself already carries its type).
func parseIncludeSpec(spec string) (sourceType, field string, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 {
		return "", "", apierr.Newf(apierr.InvalidRequest, "malformed _include/_revinclude spec %q", spec)
	}
	return parts[0], parts[1], nil
}
