package searchengine

import (
	"net/url"
	"testing"
)

func TestClassifySeparatesControlParams(t *testing.T) {
	q := url.Values{
		"family":      {"Smith,Jones", "Baxter"},
		"_include":    {"Observation:subject"},
		"_revinclude": {"Observation:subject"},
		"_sort":       {"-meta.lastUpdated"},
		"_count":      {"25"},
		"_offset":     {"5"},
		"_summary":    {"true"},
		"_total":      {"accurate"},
	}
	c := Classify(q, 10, 100)
	if len(c.Primary) != 2 {
		t.Fatalf("expected 2 AND'd occurrences of family, got %d", len(c.Primary))
	}
	if len(c.Primary[0].Values) != 2 && len(c.Primary[1].Values) != 2 {
		t.Fatalf("expected one occurrence to carry 2 comma-OR'd values: %+v", c.Primary)
	}
	if len(c.Include) != 1 || c.Include[0] != "Observation:subject" {
		t.Fatalf("unexpected include: %+v", c.Include)
	}
	if c.Count != 25 || c.Offset != 5 {
		t.Fatalf("unexpected count/offset: %d/%d", c.Count, c.Offset)
	}
	if c.Summary != "true" || c.Total != "accurate" {
		t.Fatalf("unexpected summary/total: %s/%s", c.Summary, c.Total)
	}
}

func TestClassifyModifierSplit(t *testing.T) {
	c := Classify(url.Values{"name:exact": {"Smith"}}, 10, 100)
	if len(c.Primary) != 1 || c.Primary[0].Name != "name" || c.Primary[0].Modifier != "exact" {
		t.Fatalf("unexpected classification: %+v", c.Primary)
	}
}

func TestClassifyChainedParam(t *testing.T) {
	c := Classify(url.Values{"subject.family": {"Smith"}}, 10, 100)
	if len(c.Chained) != 1 || c.Chained[0].Field != "subject" || c.Chained[0].SubParam != "family" {
		t.Fatalf("unexpected chain classification: %+v", c.Chained)
	}
}

func TestClassifyCountClampedToMax(t *testing.T) {
	c := Classify(url.Values{"_count": {"500"}}, 10, 100)
	if c.Count != 100 {
		t.Fatalf("expected count clamped to 100, got %d", c.Count)
	}
}
