// Package router implements the Collection Router component (spec §4.B): a
// pure-function mapping, configured at startup from a static table, from
// FHIR resource type to (scope, collection, FTS index). Built fresh for
// this spec — no teacher file plays this role since the teacher keeps one
// table per resource type rather than one router over all of them — in the
// idiom of the teacher's map-literal constant tables (e.g.
// validSearchParamTypes in search_parameter_def.go).
package router

import (
	"fmt"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

// Entry describes where one FHIR resource type lives: which scope/collection
// its current documents are stored under, and which FTS index covers it.
// Several resource types may share a collection and therefore an index, per
// spec §4.B's rationale for reducing index count.
type Entry struct {
	Scope      string
	Collection string
	FTSIndex   string
}

// IndexRef identifies one (collection, index) pair, returned by AllIndexes.
type IndexRef struct {
	Collection string
	Index      string
}

// Router is the immutable startup-configured table. Safe for concurrent use
// by many requests; it is never mutated after New returns.
type Router struct {
	entries        map[string]Entry
	everythingTypes []string
}

// New builds a Router from a static table. table maps FHIR resource type to
// its Entry; everythingTypes is the configured set of related resource
// types the $everything operation (spec §4.H.3.d) scans, one list shared by
// all tenants, defaulting to an empty slice when absent (spec §9 Open Question #3 — the
// correct fallback is an empty set, not "all types").
func New(table map[string]Entry, everythingTypes []string) *Router {
	entries := make(map[string]Entry, len(table))
	for k, v := range table {
		entries[k] = v
	}
	return &Router{entries: entries, everythingTypes: append([]string(nil), everythingTypes...)}
}

// TargetCollection returns the Resources collection name for resourceType.
func (r *Router) TargetCollection(resourceType string) (string, error) {
	e, ok := r.entries[resourceType]
	if !ok {
		return "", apierr.Newf(apierr.InvalidRequest, "unknown resource type %q", resourceType)
	}
	return e.Collection, nil
}

// Scope returns the scope name for resourceType.
func (r *Router) Scope(resourceType string) (string, error) {
	e, ok := r.entries[resourceType]
	if !ok {
		return "", apierr.Newf(apierr.InvalidRequest, "unknown resource type %q", resourceType)
	}
	return e.Scope, nil
}

// FTSIndex returns the FTS index name that covers resourceType, or an error
// if the type is not indexed.
func (r *Router) FTSIndex(resourceType string) (string, error) {
	e, ok := r.entries[resourceType]
	if !ok || e.FTSIndex == "" {
		return "", apierr.Newf(apierr.InvalidRequest, "resource type %q is not indexed", resourceType)
	}
	return e.FTSIndex, nil
}

// AllIndexes returns every distinct (collection, index) pair in the table.
func (r *Router) AllIndexes() []IndexRef {
	seen := make(map[string]bool)
	var out []IndexRef
	for _, e := range r.entries {
		if e.FTSIndex == "" {
			continue
		}
		key := e.Collection + "\x00" + e.FTSIndex
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, IndexRef{Collection: e.Collection, Index: e.FTSIndex})
	}
	return out
}

// EverythingTypes returns the configured set of related resource types the
// $everything operation scans. Empty when unconfigured, never "all types".
func (r *Router) EverythingTypes() []string {
	return append([]string(nil), r.everythingTypes...)
}

// Known reports whether resourceType has a routing entry at all.
func (r *Router) Known(resourceType string) bool {
	_, ok := r.entries[resourceType]
	return ok
}

// Default returns a Router pre-populated with a representative FHIR R4
// routing table: clinical types co-located in one collection, patient-like
// demographic types in another, everything else in General — mirroring the
// Patient/Clinical/General grouping spec §3 gives as its example.
func Default() *Router {
	clinical := Entry{Scope: "Resources", Collection: "Clinical", FTSIndex: "clinical_idx"}
	patient := Entry{Scope: "Resources", Collection: "Patient", FTSIndex: "patient_idx"}
	general := Entry{Scope: "Resources", Collection: "General", FTSIndex: "general_idx"}

	table := map[string]Entry{
		"Patient":        patient,
		"RelatedPerson":  patient,
		"Practitioner":   general,
		"Organization":   general,
		"Location":       general,
		"Encounter":      clinical,
		"Condition":      clinical,
		"Observation":    clinical,
		"Procedure":      clinical,
		"MedicationRequest": clinical,
		"AllergyIntolerance": clinical,
		"Immunization":   clinical,
		"DiagnosticReport": clinical,
		"CarePlan":       clinical,
		"Provenance":     general,
		"DocumentReference": general,
	}
	everything := []string{
		"Encounter", "Condition", "Observation", "Procedure",
		"MedicationRequest", "AllergyIntolerance", "Immunization",
		"DiagnosticReport", "CarePlan",
	}
	return New(table, everything)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s.%s (%s)", e.Scope, e.Collection, e.FTSIndex)
}
