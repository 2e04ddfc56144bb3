package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPageSize is used when a page request leaves PageSize at zero.
const DefaultPageSize = 10

// PageRequest asks for one page of a subject's records. Filters are passed
// to the chaincode between the subject and the page size, in order.
type PageRequest struct {
	Subject  string
	Filters  []string
	PageSize int
	Bookmark string
}

// Page is one page of a rich query. Bookmark is opaque: it comes from the
// ledger and must be sent back unmodified to fetch the next page.
type Page[T any, R Record[T]] struct {
	Items        []R    `json:"items"`
	Bookmark     string `json:"bookmark"`
	FetchedCount int    `json:"fetchedCount"`
}

// QueryPage issues exactly one rich-query evaluate for the requested page.
func (c *Core[T, R]) QueryPage(ctx context.Context, req PageRequest) (*Page[T, R], error) {
	if err := c.supports(c.tx.QueryPage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, fmt.Errorf("%w: subject identifier is required", ErrInvalidQuery)
	}
	if req.PageSize < 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidQuery, req.PageSize)
	}
	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}

	args := make([]string, 0, len(req.Filters)+3)
	args = append(args, req.Subject)
	args = append(args, req.Filters...)
	args = append(args, strconv.Itoa(req.PageSize), req.Bookmark)

	data, err := c.evaluate(ctx, c.tx.QueryPage, args...)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodePage(data)
}
