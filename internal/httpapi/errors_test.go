package httpapi

import (
	"net/http"
	"testing"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

func TestStatusForMapsEveryKind(t *testing.T) {
	cases := map[apierr.Kind]int{
		apierr.DatabaseUnavailable: http.StatusServiceUnavailable,
		apierr.Gone:                http.StatusGone,
		apierr.InvalidRequest:      http.StatusBadRequest,
		apierr.NotFound:            http.StatusNotFound,
		apierr.ValidationFailure:   http.StatusUnprocessableEntity,
		apierr.Conflict:            http.StatusConflict,
		apierr.Internal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusFor(kind); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", kind, got, want)
		}
	}
}

func TestIssueCodeForMapsEveryKind(t *testing.T) {
	cases := map[apierr.Kind]string{
		apierr.DatabaseUnavailable: "transient",
		apierr.Gone:                "not-found",
		apierr.InvalidRequest:      "invalid",
		apierr.NotFound:            "not-found",
		apierr.ValidationFailure:   "processing",
		apierr.Conflict:            "conflict",
		apierr.Internal:            "exception",
	}
	for kind, want := range cases {
		if got := issueCodeFor(kind); got != want {
			t.Errorf("issueCodeFor(%v) = %q, want %q", kind, got, want)
		}
	}
}
