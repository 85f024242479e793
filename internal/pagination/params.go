// Package pagination implements the Off-Heap Paginator (spec §4.D): params
// parsing plus the write-once KV-backed cache itself. Grounded on the
// teacher's pkg/pagination/pagination.go (offset/count/link math), extended
// with the opaque-token store/load round trip spec §3/§4.D require.
package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Params holds the _count/_offset/_page pair extracted from a request.
type Params struct {
	Count int
	Offset int
	Page   string // opaque continuation token from _page, empty on a fresh search
}

// FromContext extracts pagination parameters from an echo request,
// defaulting Count to defaultCount and clamping to maxCount.
func FromContext(c echo.Context, defaultCount, maxCount int) Params {
	count, _ := strconv.Atoi(c.QueryParam("_count"))
	if count <= 0 {
		count = defaultCount
	}
	if count > maxCount {
		count = maxCount
	}

	offset, _ := strconv.Atoi(c.QueryParam("_offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Count: count, Offset: offset, Page: c.QueryParam("_page")}
}

// HasNext reports whether more keys remain after offset+count within total.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Count < total
}

// NextOffset returns the offset to request for the following page.
func (p Params) NextOffset() int {
	return p.Offset + p.Count
}

// Link describes one FHIR Bundle pagination link.
type Link struct {
	Relation string
	URL      string
}

// Links builds self/next links for a bundle, carrying the continuation
// token in the URL per spec §4.D ("offset for the next page is carried in
// the URL, not in the stored document").
func Links(baseURL, token string, p Params, total int) []Link {
	links := []Link{
		{Relation: "self", URL: fmt.Sprintf("%s?_page=%s&_offset=%d&_count=%d", baseURL, token, p.Offset, p.Count)},
	}
	if p.HasNext(total) {
		links = append(links, Link{
			Relation: "next",
			URL:      fmt.Sprintf("%s?_page=%s&_offset=%d&_count=%d", baseURL, token, p.NextOffset(), p.Count),
		})
	}
	return links
}
