// Package httpapi implements the §6 HTTP surface: one generic route set
// over the Resource Lifecycle and Search Engine components, instead of a
// handler per resource type. Grounded on the teacher's per-domain
// handler.go "RegisterRoutes(*echo.Group)" convention, collapsed to one
// generic handler set since spec §4's lifecycle/search components carry no
// per-type special casing.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/model"
)

// statusFor maps an apierr.Kind to its HTTP status per spec §7's single
// mapping table.
func statusFor(kind apierr.Kind) int {
	switch kind {
	case apierr.DatabaseUnavailable:
		return http.StatusServiceUnavailable
	case apierr.Gone:
		return http.StatusGone
	case apierr.InvalidRequest:
		return http.StatusBadRequest
	case apierr.NotFound:
		return http.StatusNotFound
	case apierr.ValidationFailure:
		return http.StatusUnprocessableEntity
	case apierr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// issueCodeFor maps an apierr.Kind to the FHIR OperationOutcome issue code
// spec §7 prescribes for it.
func issueCodeFor(kind apierr.Kind) string {
	switch kind {
	case apierr.DatabaseUnavailable:
		return "transient"
	case apierr.Gone:
		return "not-found"
	case apierr.InvalidRequest:
		return "invalid"
	case apierr.NotFound:
		return "not-found"
	case apierr.ValidationFailure:
		return "processing"
	case apierr.Conflict:
		return "conflict"
	default:
		return "exception"
	}
}

// writeError renders err as the single OperationOutcome shape spec §7
// names, deriving the HTTP status and issue code from its apierr.Kind.
// Every handler in this package funnels its error return through here via
// ErrorHandler, so no handler writes its own error body.
func writeError(c echo.Context, err error) error {
	kind := apierr.KindOf(err)
	outcome := model.ErrorOutcome(issueCodeFor(kind), err.Error())
	return c.JSON(statusFor(kind), outcome)
}

// ErrorHandler replaces echo's default HTTP error handler so that every
// unhandled error — including ones echo itself raises (404 route miss,
// body-too-large, etc.) — is rendered as an OperationOutcome rather than
// echo's plain-text default.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		outcome := model.ErrorOutcome("exception", msg)
		_ = c.JSON(he.Code, outcome)
		return
	}
	_ = writeError(c, err)
}
