package lifecycle

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

func TestFormatETag(t *testing.T) {
	assert.Equal(t, `W/"1"`, FormatETag("1"))
	assert.Equal(t, `W/"42"`, FormatETag("42"))
}

func TestParseETag(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`W/"3"`, "3", false},
		{`"5"`, "5", false},
		{`42`, "42", false},
		{`"abc"`, "", true},
		{`W/""`, "", true},
	}
	for _, tt := range cases {
		got, err := ParseETag(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseETagRoundTrip(t *testing.T) {
	for _, v := range []string{"1", "5", "42", "100"} {
		parsed, err := ParseETag(FormatETag(v))
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}
}

func TestNextVersionID(t *testing.T) {
	next, err := NextVersionID("1")
	require.NoError(t, err)
	assert.Equal(t, "2", next)

	_, err = NextVersionID("not-a-number")
	require.Error(t, err)
	assert.Equal(t, apierr.Internal, apierr.KindOf(err))
}

func TestCheckIfMatchNoHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	require.NoError(t, CheckIfMatch(c, "5"))
}

func TestCheckIfMatchMatches(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("If-Match", `W/"5"`)
	c := e.NewContext(req, httptest.NewRecorder())

	require.NoError(t, CheckIfMatch(c, "5"))
}

func TestCheckIfMatchConflict(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("If-Match", `W/"4"`)
	c := e.NewContext(req, httptest.NewRecorder())

	err := CheckIfMatch(c, "5")
	require.Error(t, err)
	assert.Equal(t, apierr.Conflict, apierr.KindOf(err))
}
