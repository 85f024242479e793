package instrumentation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fhir-gateway/gateway/internal/apierr"
)

// bundleInteractions are the interactions whose response body is a Bundle,
// worth the extra decode to report an entries count.
var bundleInteractions = map[string]bool{
	"search-type":      true,
	"history-type":     true,
	"history-instance": true,
	"operation":        true, // $everything
	"bundle":           true,
}

// Middleware mints a reqId for every request and, on completion, emits
// exactly one structured INFO (or ERROR, on failure) line carrying spec
// §4.K's field set: reqId, method, path, duration_ms, status, and —
// when applicable — resource/operation or entries/bytes or error/message.
// No per-sub-operation INFO logs happen on this path; components that want
// finer detail log at DEBUG, gated by the logger's level.
func Middleware(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := GenerateReqID()
			c.Set("reqId", reqID)
			ctx := WithReqID(req.Context(), reqID)
			c.SetRequest(req.WithContext(ctx))

			classified := Classify(req.Method, req.URL.Path)

			origWriter := c.Response().Writer
			rec := &recorder{ResponseWriter: origWriter, statusCode: http.StatusOK}
			if bundleInteractions[classified.Interaction] {
				rec.body = &bytes.Buffer{}
			}
			c.Response().Writer = rec

			handlerErr := next(c)

			duration := time.Since(start)
			status := "success"
			if handlerErr != nil || rec.statusCode >= 400 {
				status = "error"
			}

			evt := logger.Info()
			if status == "error" {
				evt = logger.Error()
			}

			evt = evt.
				Str("reqId", reqID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int64("duration_ms", duration.Milliseconds()).
				Str("status", status)

			if classified.ResourceType != "" {
				evt = evt.Str("resource", classified.ResourceType)
			}
			if classified.Operation != "" {
				evt = evt.Str("operation", classified.Operation)
			}
			if rec.body != nil {
				evt = evt.Int("bytes", rec.body.Len())
				if n, ok := bundleEntryCount(rec.body.Bytes()); ok {
					evt = evt.Int("entries", n)
				}
			}
			if handlerErr != nil {
				evt = evt.Str("error", apierr.KindOf(handlerErr).String()).Str("message", handlerErr.Error())
			}
			evt.Msg("request complete")

			return handlerErr
		}
	}
}

// bundleEntryCount decodes just the "entry" array's length from a Bundle
// response body, without materializing the full resource tree.
func bundleEntryCount(body []byte) (int, bool) {
	if len(body) == 0 {
		return 0, false
	}
	var shape struct {
		Entry []json.RawMessage `json:"entry"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return 0, false
	}
	return len(shape.Entry), true
}

// recorder captures the status code and, for the Bundle-returning
// interactions in bundleInteractions, the response body (to report its
// size and entries count) while still forwarding every write to the
// original ResponseWriter.
type recorder struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	wroteHead  bool
}

func (r *recorder) WriteHeader(code int) {
	r.statusCode = code
	r.wroteHead = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHead {
		r.statusCode = http.StatusOK
		r.wroteHead = true
	}
	if r.body != nil {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}
