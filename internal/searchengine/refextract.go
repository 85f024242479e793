package searchengine

// extractReferences walks doc along dotted path and collects every
// "Type/id" value found at path+".reference", handling both a single
// object (cardinality 0..1) and an array of objects (cardinality 0..*)
// at any segment of the path.
func extractReferences(doc map[string]interface{}, path string) []string {
	var out []string
	values := walkPath(doc, splitDotted(path))
	for _, v := range values {
		obj, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if ref, ok := obj["reference"].(string); ok && ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

// walkPath descends a JSON document through a dotted field path, returning
// every leaf value reached — a single value for object-valued segments, one
// entry per element for array-valued segments.
func walkPath(node interface{}, segments []string) []interface{} {
	if len(segments) == 0 {
		return []interface{}{node}
	}
	switch v := node.(type) {
	case map[string]interface{}:
		next, ok := v[segments[0]]
		if !ok {
			return nil
		}
		return walkPath(next, segments[1:])
	case []interface{}:
		var out []interface{}
		for _, item := range v {
			out = append(out, walkPath(item, segments)...)
		}
		return out
	default:
		return nil
	}
}

func splitDotted(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}
