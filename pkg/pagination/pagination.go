package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const DefaultPageSize = 10

// Params holds bookmark pagination parameters extracted from a request.
// PageSize is left at zero when the client did not send one so the ledger
// query applies its own default.
type Params struct {
	PageSize int
	Bookmark string
}

// FromContext extracts pagination parameters from the echo context.
// A page size that is sent must be a positive integer. It is passed on as
// is; the ledger enforces its own upper bound.
func FromContext(c echo.Context) (Params, error) {
	var p Params
	raw := c.QueryParam("pageSize")
	if raw == "" {
		raw = c.QueryParam("_count")
	}
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("page size must be a positive integer, got %q", raw)
		}
		p.PageSize = n
	}
	p.Bookmark = c.QueryParam("bookmark")
	return p, nil
}

// EffectivePageSize returns the page size the ledger will use.
func (p Params) EffectivePageSize() int {
	if p.PageSize == 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// Response wraps one page of a bookmark-paginated API response.
type Response struct {
	Data         interface{} `json:"data"`
	Bookmark     string      `json:"bookmark"`
	FetchedCount int         `json:"fetchedCount"`
	PageSize     int         `json:"pageSize"`
	HasMore      bool        `json:"hasMore"`
	Next         string      `json:"next,omitempty"`
}

// NewResponse builds the response for one page. A full page with a
// bookmark may have a successor; a short page is the last one.
func NewResponse(data interface{}, bookmark string, fetched int, p Params) *Response {
	size := p.EffectivePageSize()
	return &Response{
		Data:         data,
		Bookmark:     bookmark,
		FetchedCount: fetched,
		PageSize:     size,
		HasMore:      bookmark != "" && fetched >= size,
	}
}

// WithNext sets the link to the following page. basePath is the request
// path and query carries the filters to repeat (subject, status).
func (r *Response) WithNext(basePath string, query url.Values) *Response {
	if !r.HasMore {
		return r
	}
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("pageSize", strconv.Itoa(r.PageSize))
	q.Set("bookmark", r.Bookmark)
	r.Next = basePath + "?" + q.Encode()
	return r
}
