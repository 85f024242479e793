package model

// Version is a Versions collection document stored under
// {ResourceType}/{id}/{versionId}. A tombstone version carries Deleted=true
// and represents a logical deletion; its Body is empty.
type Version struct {
	Type      string                 `json:"resourceType"`
	ID        string                 `json:"id"`
	VersionID string                 `json:"versionId"`
	Deleted   bool                   `json:"deleted,omitempty"`
	Body      map[string]interface{} `json:"-"`
}

// Key returns the Versions collection key "{type}/{id}/{versionId}".
func (v *Version) Key() string {
	return v.Type + "/" + v.ID + "/" + v.VersionID
}

// FromResource snapshots a Resource into a Version document at its current
// versionId, used both when copying the prior current document before a
// write and when writing the brand-new current version's mirror.
func FromResource(r *Resource) *Version {
	body := make(map[string]interface{}, len(r.Body))
	for k, val := range r.Body {
		body[k] = val
	}
	return &Version{
		Type:      r.Type,
		ID:        r.ID,
		VersionID: r.Meta.VersionID,
		Deleted:   r.Deleted,
		Body:      body,
	}
}

// ToDocument returns the full document map for KV insert, mirroring
// Resource.ToDocument's shape so version documents read back identically to
// the current document they once were.
func (v *Version) ToDocument() map[string]interface{} {
	doc := make(map[string]interface{}, len(v.Body)+3)
	for k, val := range v.Body {
		doc[k] = val
	}
	doc["resourceType"] = v.Type
	doc["id"] = v.ID
	if doc["meta"] == nil {
		doc["meta"] = map[string]interface{}{"versionId": v.VersionID}
	}
	if v.Deleted {
		doc["deleted"] = true
	}
	return doc
}

// VersionFromDocument builds a Version from a raw decoded document plus the
// versionId carried in its key. A "deleted" flag in the document sets
// Deleted and is dropped from Body.
func VersionFromDocument(doc map[string]interface{}, resourceType, id, versionID string) *Version {
	v := &Version{Type: resourceType, ID: id, VersionID: versionID, Body: make(map[string]interface{}, len(doc))}
	for k, val := range doc {
		v.Body[k] = val
	}
	if d, ok := doc["deleted"].(bool); ok {
		v.Deleted = d
	}
	delete(v.Body, "deleted")
	return v
}
