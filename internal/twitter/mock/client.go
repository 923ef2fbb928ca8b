package mock

import (
	"context"

	"github.com/bakkerme/chartbuzz/internal/twitter"
)

// Client is a scripted twitter.SearchClient for tests. Each call serves the
// next entry of Pages; once the script runs out the last page is repeated, so
// an endless source is a one-page script with a cursor. Err fails every call.
type Client struct {
	Pages   []*twitter.Page
	Err     error
	Calls   int
	Cursors []string
}

func (c *Client) FetchPage(ctx context.Context, query string, pageSize int, cursor string) (*twitter.Page, error) {
	_ = ctx
	_ = query
	_ = pageSize
	c.Calls++
	c.Cursors = append(c.Cursors, cursor)
	if c.Err != nil {
		return nil, c.Err
	}
	if len(c.Pages) == 0 {
		return &twitter.Page{Posts: []twitter.RawPost{}}, nil
	}
	idx := c.Calls - 1
	if idx >= len(c.Pages) {
		idx = len(c.Pages) - 1
	}
	return c.Pages[idx], nil
}
