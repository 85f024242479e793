package model

// ElementType enumerates the shapes a leaf path can resolve to when the
// FHIRPath parser (internal/fhirpath) and the search-parameter helpers
// (internal/searchparam) need to know how to expand and query it. This
// plays the role the teacher's validSearchParamTypes constant table plays
// for SQL columns, but reflects FHIR structure instead of a relational
// schema.
type ElementType int

const (
	ElementUnknown ElementType = iota
	ElementCodeableConcept
	ElementCoding
	ElementIdentifier
	ElementPrimitiveCode
	ElementPrimitiveString
	ElementPrimitiveBoolean
	ElementPrimitiveURI
	ElementHumanName
	ElementAddress
	ElementContactPoint
	ElementDateTime
	ElementPeriod
	ElementDate
	ElementQuantity
	ElementReference
)

// StringSubFields maps a composite string-bearing element type to the leaf
// sub-fields the String helper (spec §4.F) must expand a path into.
var StringSubFields = map[ElementType][]string{
	ElementHumanName:    {"family", "given", "prefix", "suffix"},
	ElementAddress:      {"line", "city", "district", "state", "postalCode", "country"},
	ElementContactPoint: {"value"},
}

// ChoiceTypeSuffix maps the FHIR type name used in an `as Type` cast or a
// choice-type enumeration to the capitalized field-name suffix used on the
// wire (dateTime -> DateTime, Period -> Period, Quantity -> Quantity, ...).
var ChoiceTypeSuffix = map[string]string{
	"dateTime":  "DateTime",
	"date":      "Date",
	"Period":    "Period",
	"Quantity":  "Quantity",
	"Reference": "Reference",
	"string":    "String",
	"boolean":   "Boolean",
	"CodeableConcept": "CodeableConcept",
}

// ChoiceTypeLeaf describes one concrete variant of a choice-type element:
// the on-the-wire field name, and whether it resolves to a single leaf or
// to a Period pair.
type ChoiceTypeLeaf struct {
	Field    string // e.g. "effectiveDateTime" or "effectivePeriod"
	IsPeriod bool
}

// Element describes one search-relevant field on a resource type, enough
// for the token/string/date/reference/quantity helpers to decide how to
// expand and query it.
type Element struct {
	Path          string
	Type          ElementType
	ChoiceTypes   []string // for choice elements, e.g. ["dateTime", "Period"]
	ReferenceTypes []string // allowed target types for Reference elements
}

// Schema is the process-wide, immutable reflection table the parser and
// helpers consult. It is built once at startup (spec §9's
// dependency-injected-singletons note) and never mutated afterward.
type Schema struct {
	elements map[string]map[string]Element // resourceType -> paramName -> Element
}

// NewSchema builds a Schema from a static element table. Real deployments
// load this from the FHIR SearchParameter registry (external, per spec §1);
// tests and this core's default wiring populate it directly.
func NewSchema(elements map[string]map[string]Element) *Schema {
	return &Schema{elements: elements}
}

// Lookup returns the Element describing a search parameter on a resource
// type, or false if the parameter is not declared.
func (s *Schema) Lookup(resourceType, paramName string) (Element, bool) {
	byParam, ok := s.elements[resourceType]
	if !ok {
		return Element{}, false
	}
	el, ok := byParam[paramName]
	return el, ok
}

// ChoiceLeaves enumerates the concrete on-the-wire fields for a choice-type
// element, per spec §4.E's choice-type expansion rule: each known variant
// yields one leaf. A Period variant's leaf is flagged IsPeriod; its
// .start/.end sub-fields are addressed by the date search clause.
func ChoiceLeaves(basePath string, choiceTypes []string) []ChoiceTypeLeaf {
	leaves := make([]ChoiceTypeLeaf, 0, len(choiceTypes))
	for _, ct := range choiceTypes {
		suffix, ok := ChoiceTypeSuffix[ct]
		if !ok {
			continue
		}
		field := basePath + suffix
		leaves = append(leaves, ChoiceTypeLeaf{Field: field, IsPeriod: ct == "Period"})
	}
	return leaves
}
