package httpapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/lifecycle"
)

// setVersionHeaders writes ETag and Last-Modified for a current or
// newly-written resource, mirroring the teacher's SetVersionHeaders.
func setVersionHeaders(c echo.Context, versionID, lastUpdated string) {
	c.Response().Header().Set("ETag", lifecycle.FormatETag(versionID))
	if lastUpdated != "" {
		c.Response().Header().Set("Last-Modified", lastUpdated)
	}
}

// ifMatchVersion extracts and parses an If-Match header into a bare
// versionId, or returns "" when the header is absent (unconditional
// write).
func ifMatchVersion(c echo.Context) (string, error) {
	header := c.Request().Header.Get("If-Match")
	if header == "" {
		return "", nil
	}
	return lifecycle.ParseETag(header)
}

// parseSince parses the _since query parameter as RFC 3339, per spec
// §4.I's History operation.
func parseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apierr.Newf(apierr.InvalidRequest, "_since must be RFC 3339: %v", err)
	}
	return &t, nil
}

// parseCount parses _count, falling back to def when absent or invalid.
func parseCount(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// baseURL reconstructs the request's URL without its query string, used as
// the pagination link base.
func baseURL(c echo.Context) string {
	req := c.Request()
	scheme := "http"
	if req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + req.Host + req.URL.Path
}

// mergePatch applies a JSON Merge Patch (RFC 7396) to current: a key
// present in patch overwrites current's key, except a JSON null removes
// it; nested objects merge recursively, any other value (including
// arrays) replaces wholesale. This is the patch dialect the FHIR PATCH
// interaction typically accepts alongside JSON Patch; full RFC 6902
// operation-list support is left to a future HTTP-layer content
// negotiation (Content-Type: application/json-patch+json is not yet
// dispatched here).
func mergePatch(current, patch map[string]interface{}) map[string]interface{} {
	if current == nil {
		current = make(map[string]interface{})
	}
	out := make(map[string]interface{}, len(current))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		if patchSub, ok := v.(map[string]interface{}); ok {
			if currentSub, ok := out[k].(map[string]interface{}); ok {
				out[k] = mergePatch(currentSub, patchSub)
				continue
			}
		}
		out[k] = v
	}
	return out
}
