// Package fhirpath implements the FHIRPath Parser component (spec §4.E):
// parsing HAPI-style search-parameter expressions (unions, choice types,
// extensions, where-clauses) into a tagged ParsedExpression, plus the
// choice-type expansion the date helper and the parser itself share. Built
// fresh for this spec in the recursive-descent idiom the teacher uses for
// its own small expression parsers, since no teacher file parses FHIRPath.
package fhirpath

import (
	"strings"
	"sync"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/model"
)

// Kind tags the variant of a parsed expression, per spec §4.E.
type Kind int

const (
	SimpleField Kind = iota
	Union
	Extension
	ReferenceWhere
	Cast
)

func (k Kind) String() string {
	switch k {
	case Union:
		return "UNION"
	case Extension:
		return "EXTENSION"
	case ReferenceWhere:
		return "REFERENCE_WHERE"
	case Cast:
		return "CAST"
	default:
		return "SIMPLE_FIELD"
	}
}

// ParsedExpression is the tagged result of parsing one FHIRPath expression.
type ParsedExpression struct {
	Kind Kind

	// SIMPLE_FIELD / CAST: the field path, resource-type prefix stripped,
	// relative to the document body. For CAST, this already carries the
	// capitalized choice-type suffix (effective + DateTime -> effectiveDateTime).
	Path string

	// UNION: each alternative parsed recursively, in source order.
	Alternatives []*ParsedExpression

	// EXTENSION: URL to match in extension.url, and the resolved
	// value sub-field (e.g. "extension.valueDateTime").
	ExtensionURL   string
	ExtensionValue string

	// REFERENCE_WHERE: the base field and, when present, the resolve()
	// target type constraint.
	WhereField string
	WhereType  string // empty for a generic field.where(...)
}

// Parser parses expressions against a shared, immutable Schema and caches
// choice-type expansions by (resourceType, path), per spec §4.E.
type Parser struct {
	schema *model.Schema
	cache  sync.Map // key: resourceType+"\x00"+path -> []model.ChoiceTypeLeaf
}

// New returns a Parser bound to schema, intended to be constructed once at
// startup and shared across requests (spec §9's dependency-injected
// singletons note).
func New(schema *model.Schema) *Parser {
	return &Parser{schema: schema}
}

// Parse parses a FHIRPath expression attached to a search parameter on
// resourceType.
func (p *Parser) Parse(resourceType, expr string) (*ParsedExpression, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, apierr.New(apierr.InvalidRequest, "empty FHIRPath expression")
	}

	if alts := splitTopLevel(expr, '|'); len(alts) > 1 {
		parsed := make([]*ParsedExpression, 0, len(alts))
		for _, alt := range alts {
			pe, err := p.Parse(resourceType, strings.TrimSpace(alt))
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, pe)
		}
		return &ParsedExpression{Kind: Union, Alternatives: parsed}, nil
	}

	expr = stripResourcePrefix(resourceType, expr)

	if url, valueSuffix, ok := matchExtension(expr); ok {
		return &ParsedExpression{
			Kind:           Extension,
			ExtensionURL:   url,
			ExtensionValue: "extension.value" + valueSuffix,
		}, nil
	}

	if field, target, ok := matchCastParen(expr); ok {
		return p.castExpression(stripResourcePrefix(resourceType, field), target)
	}
	if field, target, ok := matchCastDotAs(expr); ok {
		return p.castExpression(field, target)
	}

	if field, targetType, ok := matchWhere(expr); ok {
		return &ParsedExpression{Kind: ReferenceWhere, WhereField: field, WhereType: targetType}, nil
	}

	return &ParsedExpression{Kind: SimpleField, Path: expr}, nil
}

func (p *Parser) castExpression(field, targetType string) (*ParsedExpression, error) {
	suffix, ok := model.ChoiceTypeSuffix[targetType]
	if !ok {
		return nil, apierr.Newf(apierr.InvalidRequest, "unknown cast target type %q", targetType)
	}
	return &ParsedExpression{Kind: Cast, Path: field + suffix}, nil
}

// ExpandChoice enumerates the concrete leaves for a choice-type element at
// (resourceType, path), caching the result. choiceTypes is the schema's
// declared variant list for that element (e.g. ["dateTime", "Period"]).
func (p *Parser) ExpandChoice(resourceType, path string, choiceTypes []string) []model.ChoiceTypeLeaf {
	key := resourceType + "\x00" + path
	if cached, ok := p.cache.Load(key); ok {
		return cached.([]model.ChoiceTypeLeaf)
	}
	leaves := model.ChoiceLeaves(path, choiceTypes)
	p.cache.Store(key, leaves)
	return leaves
}

// stripResourcePrefix removes a leading "ResourceType." from expr so the
// result is addressable relative to the document body, per spec §4.E.
func stripResourcePrefix(resourceType, expr string) string {
	prefix := resourceType + "."
	if strings.HasPrefix(expr, prefix) {
		return strings.TrimPrefix(expr, prefix)
	}
	return expr
}

// splitTopLevel splits s on sep, ignoring occurrences inside parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// matchExtension matches "[<field>.]extension.where(url = 'URL').value[X]".
func matchExtension(expr string) (url, valueSuffix string, ok bool) {
	const marker = "extension.where(url"
	idx := strings.Index(expr, marker)
	if idx < 0 || (idx > 0 && expr[idx-1] != '.') {
		return "", "", false
	}
	rest := expr[idx+len(marker):]
	eq := strings.Index(rest, "'")
	if eq < 0 {
		return "", "", false
	}
	rest = rest[eq+1:]
	end := strings.Index(rest, "'")
	if end < 0 {
		return "", "", false
	}
	url = rest[:end]
	rest = rest[end+1:]
	closeParen := strings.Index(rest, ")")
	if closeParen < 0 {
		return "", "", false
	}
	rest = strings.TrimPrefix(rest[closeParen+1:], ".")
	valueSuffix = strings.TrimPrefix(rest, "value")
	return url, valueSuffix, true
}

// matchCastParen matches "(Resource.field as Type)".
func matchCastParen(expr string) (field, target string, ok bool) {
	if !strings.HasPrefix(expr, "(") || !strings.HasSuffix(expr, ")") {
		return "", "", false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(expr, "("), ")")
	parts := strings.SplitN(inner, " as ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// matchCastDotAs matches "field.as(Type)".
func matchCastDotAs(expr string) (field, target string, ok bool) {
	const marker = ".as("
	idx := strings.Index(expr, marker)
	if idx < 0 || !strings.HasSuffix(expr, ")") {
		return "", "", false
	}
	field = expr[:idx]
	target = strings.TrimSuffix(expr[idx+len(marker):], ")")
	return field, target, true
}

// matchWhere matches "field.where(resolve() is Type)" or a generic
// "field.where(...)". The second return distinguishes a type-constrained
// resolve() from a generic where-clause this parser cannot further
// interpret; the engine treats the latter as a reference filter hint only.
func matchWhere(expr string) (field, targetType string, ok bool) {
	const marker = ".where("
	idx := strings.Index(expr, marker)
	if idx < 0 || !strings.HasSuffix(expr, ")") {
		return "", "", false
	}
	field = expr[:idx]
	inner := strings.TrimSuffix(expr[idx+len(marker):], ")")
	inner = strings.TrimSpace(inner)
	const resolvePrefix = "resolve() is "
	if strings.HasPrefix(inner, resolvePrefix) {
		return field, strings.TrimSpace(strings.TrimPrefix(inner, resolvePrefix)), true
	}
	return field, "", true
}
