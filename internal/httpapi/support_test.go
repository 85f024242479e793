package httpapi

import (
	"testing"
	"time"
)

func TestMergePatchOverwritesScalar(t *testing.T) {
	current := map[string]interface{}{"active": true, "gender": "male"}
	patch := map[string]interface{}{"gender": "other"}
	got := mergePatch(current, patch)
	if got["gender"] != "other" || got["active"] != true {
		t.Fatalf("got %+v", got)
	}
}

func TestMergePatchRemovesNullField(t *testing.T) {
	current := map[string]interface{}{"active": true, "deceasedBoolean": false}
	patch := map[string]interface{}{"deceasedBoolean": nil}
	got := mergePatch(current, patch)
	if _, ok := got["deceasedBoolean"]; ok {
		t.Fatalf("expected deceasedBoolean removed, got %+v", got)
	}
	if got["active"] != true {
		t.Fatalf("unrelated field clobbered: %+v", got)
	}
}

func TestMergePatchMergesNestedObjectsRecursively(t *testing.T) {
	current := map[string]interface{}{
		"name": map[string]interface{}{"family": "Smith", "given": []interface{}{"Jane"}},
	}
	patch := map[string]interface{}{
		"name": map[string]interface{}{"family": "Doe"},
	}
	got := mergePatch(current, patch)
	name := got["name"].(map[string]interface{})
	if name["family"] != "Doe" {
		t.Fatalf("expected family overwritten, got %+v", name)
	}
	if _, ok := name["given"]; !ok {
		t.Fatalf("expected sibling nested field preserved, got %+v", name)
	}
}

func TestMergePatchReplacesArrayWholesale(t *testing.T) {
	current := map[string]interface{}{"identifier": []interface{}{"a", "b"}}
	patch := map[string]interface{}{"identifier": []interface{}{"c"}}
	got := mergePatch(current, patch)
	arr := got["identifier"].([]interface{})
	if len(arr) != 1 || arr[0] != "c" {
		t.Fatalf("expected array replaced wholesale, got %+v", arr)
	}
}

func TestMergePatchNilCurrentStartsEmpty(t *testing.T) {
	got := mergePatch(nil, map[string]interface{}{"active": true})
	if got["active"] != true || len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseSinceEmptyReturnsNil(t *testing.T) {
	got, err := parseSince("")
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestParseSinceValidRFC3339(t *testing.T) {
	got, err := parseSince("2026-01-15T10:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseSinceMalformedIsInvalidRequest(t *testing.T) {
	if _, err := parseSince("not-a-date"); err == nil {
		t.Fatal("expected error for malformed _since")
	}
}

func TestParseCountDefaultsWhenAbsent(t *testing.T) {
	if got := parseCount("", 50); got != 50 {
		t.Fatalf("got %d, want 50", got)
	}
}

func TestParseCountDefaultsWhenNonPositive(t *testing.T) {
	if got := parseCount("0", 50); got != 50 {
		t.Fatalf("got %d, want 50", got)
	}
	if got := parseCount("-5", 50); got != 50 {
		t.Fatalf("got %d, want 50", got)
	}
}

func TestParseCountParsesValid(t *testing.T) {
	if got := parseCount("25", 50); got != 25 {
		t.Fatalf("got %d, want 25", got)
	}
}
