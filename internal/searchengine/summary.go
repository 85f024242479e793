package searchengine

// projectSummary applies the _summary projection spec §4.H step 4 and §6
// name (true / text / data) to one materialized document before it is
// placed in a bundle entry. An empty mode leaves doc untouched. Since this
// engine carries no per-type "isSummary" element table, "true" and "text"
// project down to the identifying elements every resource has
// (resourceType/id/meta, plus the narrative for "text"); "data" is the
// inverse of "text" — every element except the narrative.
func projectSummary(doc map[string]interface{}, mode string) map[string]interface{} {
	switch mode {
	case "true":
		return pick(doc, "resourceType", "id", "meta")
	case "text":
		return pick(doc, "resourceType", "id", "meta", "text")
	case "data":
		return omit(doc, "text")
	default:
		return doc
	}
}

func pick(doc map[string]interface{}, fields ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

func omit(doc map[string]interface{}, fields ...string) map[string]interface{} {
	drop := make(map[string]bool, len(fields))
	for _, f := range fields {
		drop[f] = true
	}
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if drop[k] {
			continue
		}
		out[k] = v
	}
	return out
}
