package fhirpath

import "testing"

func newTestParser() *Parser {
	return New(nil)
}

func TestParseSimpleField(t *testing.T) {
	p := newTestParser()
	pe, err := p.Parse("Patient", "Patient.name.family")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Kind != SimpleField || pe.Path != "name.family" {
		t.Fatalf("got %+v", pe)
	}
}

func TestParseUnion(t *testing.T) {
	p := newTestParser()
	pe, err := p.Parse("Patient", "Patient.name | Patient.alias")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Kind != Union || len(pe.Alternatives) != 2 {
		t.Fatalf("got %+v", pe)
	}
	if pe.Alternatives[0].Path != "name" || pe.Alternatives[1].Path != "alias" {
		t.Fatalf("got %+v", pe.Alternatives)
	}
}

func TestParseExtension(t *testing.T) {
	p := newTestParser()
	pe, err := p.Parse("Patient", "Patient.extension.where(url = 'http://example.org/birthplace').valueAddress")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Kind != Extension {
		t.Fatalf("got %+v", pe)
	}
	if pe.ExtensionURL != "http://example.org/birthplace" {
		t.Fatalf("got url %q", pe.ExtensionURL)
	}
	if pe.ExtensionValue != "extension.valueAddress" {
		t.Fatalf("got value field %q", pe.ExtensionValue)
	}
}

func TestParseCastParen(t *testing.T) {
	p := newTestParser()
	pe, err := p.Parse("Condition", "(Condition.onset as dateTime)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Kind != Cast || pe.Path != "onsetDateTime" {
		t.Fatalf("got %+v", pe)
	}
}

func TestParseCastDotAs(t *testing.T) {
	p := newTestParser()
	pe, err := p.Parse("Observation", "Observation.value.as(Quantity)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Kind != Cast || pe.Path != "valueQuantity" {
		t.Fatalf("got %+v", pe)
	}
}

func TestParseReferenceWhereResolve(t *testing.T) {
	p := newTestParser()
	pe, err := p.Parse("Observation", "Observation.performer.where(resolve() is Practitioner)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pe.Kind != ReferenceWhere || pe.WhereField != "performer" || pe.WhereType != "Practitioner" {
		t.Fatalf("got %+v", pe)
	}
}

func TestExpandChoiceCachesResult(t *testing.T) {
	p := newTestParser()
	first := p.ExpandChoice("Condition", "onset", []string{"dateTime", "Period"})
	second := p.ExpandChoice("Condition", "onset", []string{"dateTime", "Period"})
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("got %+v / %+v", first, second)
	}
	if first[1].Field != "onsetPeriod" || !first[1].IsPeriod {
		t.Fatalf("got %+v", first[1])
	}
}

func TestParseEmptyExpressionIsInvalidRequest(t *testing.T) {
	p := newTestParser()
	if _, err := p.Parse("Patient", "   "); err == nil {
		t.Fatal("expected error for empty expression")
	}
}
