package searchparam

import (
	"testing"

	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/model"
)

func testSchema() *model.Schema {
	return model.NewSchema(map[string]map[string]model.Element{
		"Patient": {
			"family": {Path: "name.family", Type: model.ElementPrimitiveString},
			"identifier": {Path: "identifier", Type: model.ElementIdentifier},
			"active": {Path: "active", Type: model.ElementPrimitiveBoolean},
			"name": {Path: "name", Type: model.ElementHumanName},
			"organization": {Path: "managingOrganization", Type: model.ElementReference, ReferenceTypes: []string{"Organization"}},
		},
		"Encounter": {
			"date": {Path: "period", Type: model.ElementPeriod},
		},
		"Condition": {
			"onset": {Path: "onset", Type: model.ElementDateTime, ChoiceTypes: []string{"dateTime", "Period"}},
		},
		"Observation": {
			"value-quantity": {Path: "valueQuantity", Type: model.ElementQuantity},
		},
	})
}

func TestTokenWithSystem(t *testing.T) {
	q, err := Token(testSchema(), "Patient", "identifier", []string{"http://sys|123"}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestTokenTrailingPipeMeansNoSystem(t *testing.T) {
	q, err := Token(testSchema(), "Patient", "identifier", []string{"|123"}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestTokenBooleanValue(t *testing.T) {
	_, err := Token(testSchema(), "Patient", "active", []string{"true"}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Token(testSchema(), "Patient", "active", []string{"notabool"}, nil, false); err == nil {
		t.Fatal("expected error for invalid boolean token")
	}
}

func TestStringExpandsHumanNameSubFields(t *testing.T) {
	q, err := String(testSchema(), "Patient", "name", []string{"Smith"}, &fhirpath.ParsedExpression{Kind: fhirpath.SimpleField, Path: "name"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestReferenceRequiresTargetTypeForBareID(t *testing.T) {
	schema := testSchema()
	if _, err := Reference(schema, "Patient", "organization", []string{"42"}, nil); err != nil {
		t.Fatalf("unexpected error resolving unique target type: %v", err)
	}

	ambiguous := model.NewSchema(map[string]map[string]model.Element{
		"Observation": {"subject": {Path: "subject", Type: model.ElementReference, ReferenceTypes: []string{"Patient", "Group"}}},
	})
	if _, err := Reference(ambiguous, "Observation", "subject", []string{"42"}, nil); err == nil {
		t.Fatal("expected error for ambiguous bare id")
	}
}

func TestQuantityApproximateWidensRange(t *testing.T) {
	q, err := Quantity(testSchema(), "Observation", "value-quantity", []string{"ap100"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestDatePeriodOverlap(t *testing.T) {
	parser := fhirpath.New(testSchema())
	schema := testSchema()
	q, err := Date(parser, schema, "Encounter", "date", []string{"ge2025-01-05", "le2025-01-07"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestDateChoiceTypeExpansion(t *testing.T) {
	parser := fhirpath.New(testSchema())
	schema := testSchema()
	q, err := Date(parser, schema, "Condition", "onset", []string{"2025-06-01"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}
