package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/model"
)

func TestAssignPlaceholderIDsGeneratesAndSkipsNonPlaceholders(t *testing.T) {
	entries := []model.BundleEntry{
		{
			FullURL: "urn:uuid:patient-1",
			Request: &model.BundleRequest{Method: "POST", URL: "Patient"},
			Resource: map[string]interface{}{
				"resourceType": "Patient",
			},
		},
		{
			FullURL: "Patient/already-real",
			Request: &model.BundleRequest{Method: "PUT", URL: "Patient/already-real"},
			Resource: map[string]interface{}{"resourceType": "Patient"},
		},
	}

	assigned := assignPlaceholderIDs(entries)

	require.Len(t, assigned, 1)
	resolved, ok := assigned["urn:uuid:patient-1"]
	require.True(t, ok)
	assert.Regexp(t, `^Patient/.+`, resolved)
	assert.Equal(t, resolved, "Patient/"+entries[0].Resource["id"].(string))
}

func TestAssignPlaceholderIDsKeepsClientSuppliedID(t *testing.T) {
	entries := []model.BundleEntry{
		{
			FullURL:  "urn:uuid:obs-1",
			Request:  &model.BundleRequest{Method: "POST", URL: "Observation"},
			Resource: map[string]interface{}{"resourceType": "Observation", "id": "obs-42"},
		},
	}

	assigned := assignPlaceholderIDs(entries)

	assert.Equal(t, "Observation/obs-42", assigned["urn:uuid:obs-1"])
}

func TestRewriteReferencesPropagatesAcrossEntries(t *testing.T) {
	entries := []model.BundleEntry{
		{
			FullURL: "urn:uuid:patient-1",
			Request: &model.BundleRequest{Method: "POST", URL: "Patient"},
			Resource: map[string]interface{}{
				"resourceType": "Patient",
				"id":           "p1",
			},
		},
		{
			FullURL: "urn:uuid:obs-1",
			Request: &model.BundleRequest{Method: "POST", URL: "Observation"},
			Resource: map[string]interface{}{
				"resourceType": "Observation",
				"subject": map[string]interface{}{
					"reference": "urn:uuid:patient-1",
				},
				"performer": []interface{}{
					map[string]interface{}{"reference": "urn:uuid:patient-1"},
				},
			},
		},
	}

	assigned := assignPlaceholderIDs(entries)
	rewriteReferences(entries, assigned)

	subject := entries[1].Resource["subject"].(map[string]interface{})
	assert.Equal(t, "Patient/p1", subject["reference"])

	performers := entries[1].Resource["performer"].([]interface{})
	first := performers[0].(map[string]interface{})
	assert.Equal(t, "Patient/p1", first["reference"])
}

func TestRewriteReferencesLeavesUnresolvedReferencesAlone(t *testing.T) {
	entries := []model.BundleEntry{
		{
			Resource: map[string]interface{}{
				"subject": map[string]interface{}{"reference": "Patient/existing-123"},
			},
		},
	}

	rewriteReferences(entries, map[string]string{"urn:uuid:unrelated": "Patient/x"})

	subject := entries[0].Resource["subject"].(map[string]interface{})
	assert.Equal(t, "Patient/existing-123", subject["reference"])
}

func TestParseEntryURL(t *testing.T) {
	rt, id := parseEntryURL("Patient/abc-123")
	assert.Equal(t, "Patient", rt)
	assert.Equal(t, "abc-123", id)

	rt, id = parseEntryURL("Patient")
	assert.Equal(t, "Patient", rt)
	assert.Equal(t, "", id)
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, "404 Not Found", statusForKind(apierr.NotFound))
	assert.Equal(t, "410 Gone", statusForKind(apierr.Gone))
	assert.Equal(t, "409 Conflict", statusForKind(apierr.Conflict))
	assert.Equal(t, "400 Bad Request", statusForKind(apierr.InvalidRequest))
	assert.Equal(t, "422 Unprocessable Entity", statusForKind(apierr.ValidationFailure))
	assert.Equal(t, "503 Service Unavailable", statusForKind(apierr.DatabaseUnavailable))
	assert.Equal(t, "500 Internal Server Error", statusForKind(apierr.Internal))
}

func TestErrorEntryMapsKindToOutcome(t *testing.T) {
	err := apierr.Newf(apierr.Conflict, "version mismatch")
	entry := errorEntry(err)

	require.NotNil(t, entry.Response)
	assert.Equal(t, "409 Conflict", entry.Response.Status)
	require.NotNil(t, entry.Response.Outcome)
	assert.Equal(t, "error", entry.Response.Outcome.Issue[0].Severity)
}

func TestExecuteBundleRejectsUnknownType(t *testing.T) {
	l := &Lifecycle{}
	_, err := l.ExecuteBundle(nil, "tenant-a", &model.Bundle{Type: "document"})
	require.Error(t, err)
	assert.Equal(t, apierr.InvalidRequest, apierr.KindOf(err))
}
