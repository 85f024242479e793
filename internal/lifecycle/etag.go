// Package lifecycle implements the Resource Lifecycle component (spec
// §4.I): create/read/update/patch/delete/vread/history/bundle over the
// Gateway's transaction primitive. Grounded on the teacher's
// internal/platform/fhir/versioning.go (ETag/If-Match helpers, generalized
// from an int version counter to the string versionId this core stores)
// and history.go (history bundle assembly, retargeted from a Postgres
// table scan to an FTS query over the Versions collection).
package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

// FormatETag renders a weak ETag from a versionId string.
func FormatETag(versionID string) string {
	return fmt.Sprintf(`W/"%s"`, versionID)
}

// ParseETag extracts the versionId from an ETag value like W/"3" or "3".
func ParseETag(etag string) (string, error) {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	if etag == "" {
		return "", apierr.New(apierr.InvalidRequest, "empty ETag")
	}
	if _, err := strconv.Atoi(etag); err != nil {
		return "", apierr.Newf(apierr.InvalidRequest, "ETag must carry a numeric versionId: %q", etag)
	}
	return etag, nil
}

// CheckIfMatch validates the If-Match header against the current
// versionId. Returns nil when no If-Match header is present
// (unconditional write); returns apierr.Conflict when present and
// mismatched.
func CheckIfMatch(c echo.Context, currentVersionID string) error {
	ifMatch := c.Request().Header.Get("If-Match")
	if ifMatch == "" {
		return nil
	}
	expected, err := ParseETag(ifMatch)
	if err != nil {
		return err
	}
	if expected != currentVersionID {
		return apierr.Newf(apierr.Conflict, "version conflict: If-Match %q does not match current versionId %q", expected, currentVersionID)
	}
	return nil
}

// NextVersionID increments a decimal versionId string.
func NextVersionID(current string) (string, error) {
	n, err := strconv.Atoi(current)
	if err != nil {
		return "", apierr.Newf(apierr.Internal, "non-numeric versionId %q", current)
	}
	return strconv.Itoa(n + 1), nil
}
