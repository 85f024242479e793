package instrumentation

import (
	"net/http"
	"testing"
)

func TestClassifyRead(t *testing.T) {
	got := Classify(http.MethodGet, "/fhir/acme/Patient/123")
	if got.Interaction != "read" || got.ResourceType != "Patient" || got.ResourceID != "123" {
		t.Fatalf("got %+v", got)
	}
}

func TestClassifyVRead(t *testing.T) {
	got := Classify(http.MethodGet, "/fhir/acme/Patient/123/_history/2")
	if got.Interaction != "vread" {
		t.Fatalf("expected vread, got %q", got.Interaction)
	}
}

func TestClassifyHistoryInstance(t *testing.T) {
	got := Classify(http.MethodGet, "/fhir/acme/Patient/123/_history")
	if got.Interaction != "history-instance" {
		t.Fatalf("expected history-instance, got %q", got.Interaction)
	}
}

func TestClassifyHistoryType(t *testing.T) {
	got := Classify(http.MethodGet, "/fhir/acme/Patient/_history")
	if got.Interaction != "history-type" {
		t.Fatalf("expected history-type, got %q", got.Interaction)
	}
}

func TestClassifySearchType(t *testing.T) {
	got := Classify(http.MethodGet, "/fhir/acme/Patient")
	if got.Interaction != "search-type" {
		t.Fatalf("expected search-type, got %q", got.Interaction)
	}
}

func TestClassifyCreate(t *testing.T) {
	got := Classify(http.MethodPost, "/fhir/acme/Patient")
	if got.Interaction != "create" || got.ResourceType != "Patient" {
		t.Fatalf("got %+v", got)
	}
}

func TestClassifyUpdate(t *testing.T) {
	got := Classify(http.MethodPut, "/fhir/acme/Patient/123")
	if got.Interaction != "update" {
		t.Fatalf("expected update, got %q", got.Interaction)
	}
}

func TestClassifyPatch(t *testing.T) {
	got := Classify(http.MethodPatch, "/fhir/acme/Patient/123")
	if got.Interaction != "patch" {
		t.Fatalf("expected patch, got %q", got.Interaction)
	}
}

func TestClassifyDelete(t *testing.T) {
	got := Classify(http.MethodDelete, "/fhir/acme/Patient/123")
	if got.Interaction != "delete" {
		t.Fatalf("expected delete, got %q", got.Interaction)
	}
}

func TestClassifyEverything(t *testing.T) {
	got := Classify(http.MethodGet, "/fhir/acme/Patient/123/$everything")
	if got.Interaction != "operation" || got.Operation != "everything" {
		t.Fatalf("got %+v", got)
	}
}

func TestClassifyBundlePost(t *testing.T) {
	got := Classify(http.MethodPost, "/fhir/acme")
	if got.Interaction != "bundle" {
		t.Fatalf("expected bundle, got %q", got.Interaction)
	}
}

func TestBundleEntryCount(t *testing.T) {
	body := []byte(`{"resourceType":"Bundle","entry":[{},{},{}]}`)
	n, ok := bundleEntryCount(body)
	if !ok || n != 3 {
		t.Fatalf("got n=%d ok=%v, want 3 true", n, ok)
	}
}

func TestBundleEntryCountMissingField(t *testing.T) {
	body := []byte(`{"resourceType":"Patient"}`)
	n, ok := bundleEntryCount(body)
	if !ok || n != 0 {
		t.Fatalf("got n=%d ok=%v, want 0 true", n, ok)
	}
}

func TestGenerateReqIDLength(t *testing.T) {
	id := GenerateReqID()
	if len(id) != 16 {
		t.Fatalf("expected 16 hex chars for 8 bytes, got %d (%q)", len(id), id)
	}
}
