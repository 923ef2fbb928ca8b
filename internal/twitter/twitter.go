package twitter

import (
	"context"
	"time"
)

// Post is a fully-populated tweet as handed to the chart overlay. Every field
// is defined; absent source fields are substituted during mapping (see FromRaw).
type Post struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"timestamp"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	Hashtags  []string  `json:"hashtags"`
	Mentions  []string  `json:"mentions"`
	URLs      []string  `json:"urls"`
	Photos    []string  `json:"photos"`
	Videos    []string  `json:"videos"`
	IsRetweet bool      `json:"isRetweet"`
	IsQuoted  bool      `json:"isQuoted"`
	IsReply   bool      `json:"isReply"`
}

// RawPost is a single record as the search source returned it. Any field may
// carry its zero value when the source omitted it; CreatedAt is nil when the
// source had no parseable time.
type RawPost struct {
	ID        string
	Username  string
	Text      string
	CreatedAt *time.Time
	Likes     int
	Retweets  int
	Replies   int
	Hashtags  []string
	Mentions  []string
	URLs      []string
	Photos    []string
	Videos    []string
	IsRetweet bool
	IsQuoted  bool
	IsReply   bool
}

// Page is one page of search results. An empty NextCursor means the source
// has no further pages for this query.
type Page struct {
	Posts      []RawPost
	NextCursor string
}

// SearchClient retrieves pages of posts matching a query. The first page is
// requested with an empty cursor. A nil page or nil Posts slice signals a
// malformed response; callers treat it as end-of-stream, not as a failure.
type SearchClient interface {
	FetchPage(ctx context.Context, query string, pageSize int, cursor string) (*Page, error)
}
