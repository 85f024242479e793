package instrumentation

import (
	"net/http"
	"strings"
)

// Interaction classifies one request by method + path. Interaction holds
// the FHIR interaction name (read, vread, search-type, create, update,
// patch, delete, history-type, history-instance, or "operation" for a
// $-operation); Operation holds the $-operation name (e.g. "everything") or
// "bundle", and is what the log line writes in its "operation" field.
type Interaction struct {
	ResourceType string
	ResourceID   string
	Operation    string
	Interaction  string
}

// Classify extracts resource/operation/interaction info from a request
// path shaped "/fhir/{tenant}/{Type}[/{id}[/_history[/{vid}]]]" or
// "/fhir/{tenant}" (bundle) or ".../{Type}/{id}/$everything". Mirrors the
// teacher's ExtractResourceInfo/ClassifyInteraction split, with the
// tenant segment stripped in addition to the "fhir" base segment.
func Classify(method, path string) Interaction {
	segs := resourceSegments(path)

	if len(segs) == 0 {
		return Interaction{Interaction: "bundle", Operation: "bundle"}
	}

	resourceType := segs[0]
	var resourceID string
	if len(segs) >= 2 && segs[1] != "_history" {
		resourceID = segs[1]
	}

	for _, s := range segs {
		if strings.HasPrefix(s, "$") {
			return Interaction{ResourceType: resourceType, ResourceID: resourceID, Operation: strings.TrimPrefix(s, "$"), Interaction: "operation"}
		}
	}

	switch method {
	case http.MethodGet:
		return Interaction{ResourceType: resourceType, ResourceID: resourceID, Interaction: classifyGet(segs)}
	case http.MethodPost:
		if len(segs) == 1 {
			return Interaction{ResourceType: resourceType, Interaction: "create"}
		}
		return Interaction{ResourceType: resourceType, ResourceID: resourceID, Interaction: "create"}
	case http.MethodPut:
		return Interaction{ResourceType: resourceType, ResourceID: resourceID, Interaction: "update"}
	case http.MethodPatch:
		return Interaction{ResourceType: resourceType, ResourceID: resourceID, Interaction: "patch"}
	case http.MethodDelete:
		return Interaction{ResourceType: resourceType, ResourceID: resourceID, Interaction: "delete"}
	default:
		return Interaction{ResourceType: resourceType, ResourceID: resourceID, Interaction: "unknown"}
	}
}

func classifyGet(segs []string) string {
	n := len(segs)
	switch {
	case n == 1:
		return "search-type"
	case n == 2:
		if segs[1] == "_history" {
			return "history-type"
		}
		return "read"
	case n == 3:
		if segs[2] == "_history" {
			return "history-instance"
		}
		return "read"
	default:
		if segs[2] == "_history" {
			return "vread"
		}
		return "read"
	}
}

// resourceSegments strips the "/fhir" base segment and the {tenant}
// segment, returning whatever follows (ResourceType, id, _history, vid,
// or nothing for a bare bundle POST).
func resourceSegments(path string) []string {
	raw := strings.Split(path, "/")
	var segs []string
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) > 0 && strings.EqualFold(segs[0], "fhir") {
		segs = segs[1:]
	}
	if len(segs) > 0 {
		// tenant segment
		segs = segs[1:]
	}
	return segs
}
