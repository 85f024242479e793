// Package model holds the plain JSON document shapes exchanged with the
// database and the HTTP surface: resources, versions, bundles, operation
// outcomes, and pagination state. None of it depends on a FHIR schema
// library; resources are kept as generic documents because profile
// validation and typed parsing are external collaborators.
package model

import "time"

// Meta is the subset of FHIR's Resource.meta this core owns.
type Meta struct {
	VersionID   string `json:"versionId"`
	LastUpdated string `json:"lastUpdated"`
}

// Resource is a generic FHIR resource document as stored under
// {ResourceType}/{id} in a tenant's Resources collection. Body carries the
// full resource JSON, including resourceType, id, and meta; Meta is kept
// alongside for convenient access without re-walking Body.
type Resource struct {
	Type    string                 `json:"resourceType"`
	ID      string                 `json:"id"`
	Meta    Meta                   `json:"meta"`
	Deleted bool                   `json:"deleted,omitempty"`
	Body    map[string]interface{} `json:"-"`
}

// Key returns the Resources collection key "{type}/{id}".
func (r *Resource) Key() string {
	return r.Type + "/" + r.ID
}

// NowRFC3339 returns the current instant formatted the way meta.lastUpdated
// is stored: RFC 3339 in UTC.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ToDocument merges Type/ID/Meta/Deleted into Body and returns the full
// document map ready for JSON marshaling or KV upsert.
func (r *Resource) ToDocument() map[string]interface{} {
	doc := make(map[string]interface{}, len(r.Body)+3)
	for k, v := range r.Body {
		doc[k] = v
	}
	doc["resourceType"] = r.Type
	doc["id"] = r.ID
	doc["meta"] = map[string]interface{}{
		"versionId":   r.Meta.VersionID,
		"lastUpdated": r.Meta.LastUpdated,
	}
	if r.Deleted {
		doc["deleted"] = true
	} else {
		delete(doc, "deleted")
	}
	return doc
}

// FromDocument builds a Resource from a raw document map decoded from the
// database (gocb decodes KV/N1QL/FTS results into map[string]interface{}).
func FromDocument(doc map[string]interface{}) *Resource {
	r := &Resource{Body: make(map[string]interface{}, len(doc))}
	for k, v := range doc {
		r.Body[k] = v
	}
	if t, ok := doc["resourceType"].(string); ok {
		r.Type = t
	}
	if id, ok := doc["id"].(string); ok {
		r.ID = id
	}
	if m, ok := doc["meta"].(map[string]interface{}); ok {
		if v, ok := m["versionId"].(string); ok {
			r.Meta.VersionID = v
		}
		if lu, ok := m["lastUpdated"].(string); ok {
			r.Meta.LastUpdated = lu
		}
	}
	if d, ok := doc["deleted"].(bool); ok {
		r.Deleted = d
	}
	delete(r.Body, "deleted")
	return r
}
