package pagination

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps an explicit limit. Requests without a limit get every row.
const MaxLimit = 100

// TotalCountHeader carries the size of the unpaginated collection.
const TotalCountHeader = "X-Total-Count"

// Params holds pagination parameters extracted from a request. A zero Limit
// means no limit.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts limit/offset from the query string. Missing, malformed
// or negative values fall back to "all rows from the start".
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// LimitArg returns the value to bind to a SQL LIMIT placeholder. nil binds as
// NULL, which Postgres treats as no limit.
func (p Params) LimitArg() *int {
	if p.Limit <= 0 {
		return nil
	}
	l := p.Limit
	return &l
}

// Window applies the params to an in-memory slice length, returning the
// bounds of the page.
func (p Params) Window(n int) (start, end int) {
	start = p.Offset
	if start > n {
		start = n
	}
	end = n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limit > 0 && p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page, never negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Link builds an RFC 8288 Link header value with next/prev relations for a
// paginated request. It returns "" when the request was not paginated.
func (p Params) Link(u *url.URL, total int) string {
	if p.Limit <= 0 {
		return ""
	}
	var links []string
	if p.HasNext(total) {
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, pageURL(u, p.Limit, p.NextOffset())))
	}
	if p.HasPrevious() {
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, pageURL(u, p.Limit, p.PreviousOffset())))
	}
	return strings.Join(links, ", ")
}

func pageURL(u *url.URL, limit, offset int) string {
	next := *u
	q := next.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	next.RawQuery = q.Encode()
	return next.RequestURI()
}

// Write sets the pagination headers and renders items as a bare JSON array.
func Write(c echo.Context, p Params, items interface{}, total int) error {
	h := c.Response().Header()
	h.Set(TotalCountHeader, strconv.Itoa(total))
	if link := p.Link(c.Request().URL, total); link != "" {
		h.Set("Link", link)
	}
	return c.JSON(http.StatusOK, items)
}
