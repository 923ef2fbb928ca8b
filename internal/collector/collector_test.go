package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bakkerme/chartbuzz/internal/config"
	"github.com/bakkerme/chartbuzz/internal/filter"
	"github.com/bakkerme/chartbuzz/internal/twitter"
	"github.com/bakkerme/chartbuzz/internal/twitter/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PageDelay = 0
	return cfg
}

func rawPosts(texts ...string) []twitter.RawPost {
	posts := make([]twitter.RawPost, 0, len(texts))
	for i, text := range texts {
		posts = append(posts, twitter.RawPost{ID: string(rune('a' + i)), Text: text})
	}
	return posts
}

func TestCollectStopsWhenSourceIsExhausted(t *testing.T) {
	source := &mock.Client{
		Pages: []*twitter.Page{
			{Posts: rawPosts(
				"bitcoin breaking out of the range",
				"solana fees are basically nothing",
				"ethereum gas spiking again tonight",
			)},
		},
	}
	cfg := testConfig()
	cfg.TargetCount = 100

	posts := New(source, nil, testLogger(), cfg).Collect(context.Background(), "btc")

	if source.Calls != 1 {
		t.Fatalf("expected exactly 1 page fetch, got %d", source.Calls)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
}

func TestCollectStopsOnEmptyPage(t *testing.T) {
	source := &mock.Client{
		Pages: []*twitter.Page{
			{Posts: []twitter.RawPost{}, NextCursor: "more"},
		},
	}

	posts := New(source, nil, testLogger(), testConfig()).Collect(context.Background(), "btc")

	if source.Calls != 1 {
		t.Fatalf("expected exactly 1 page fetch, got %d", source.Calls)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts, got %d", len(posts))
	}
}

func TestCollectHonorsAttemptCap(t *testing.T) {
	texts := []string{
		"unique take number zero about the market today",
		"completely different thought on the next leg up",
		"yet another angle nobody has posted so far",
		"fresh commentary on volume and open interest",
		"final observation about the funding rates",
	}
	pages := make([]*twitter.Page, 0, len(texts))
	for i, text := range texts {
		pages = append(pages, &twitter.Page{
			Posts:      []twitter.RawPost{{ID: text, Text: text}},
			NextCursor: "cursor-" + string(rune('0'+i)),
		})
	}
	source := &mock.Client{Pages: pages}

	cfg := testConfig()
	cfg.TargetCount = 1000
	cfg.MaxAttempts = 5

	posts := New(source, nil, testLogger(), cfg).Collect(context.Background(), "btc")

	if source.Calls != 5 {
		t.Fatalf("expected exactly 5 page fetches, got %d", source.Calls)
	}
	if len(posts) > 5 {
		t.Fatalf("expected at most 5 posts, got %d", len(posts))
	}
}

func TestCollectFollowsCursors(t *testing.T) {
	source := &mock.Client{
		Pages: []*twitter.Page{
			{Posts: rawPosts("page one post about listings"), NextCursor: "c1"},
			{Posts: rawPosts("page two post about delistings"), NextCursor: "c2"},
			{Posts: rawPosts("page three post about airdrops")},
		},
	}

	posts := New(source, nil, testLogger(), testConfig()).Collect(context.Background(), "btc")

	if source.Calls != 3 {
		t.Fatalf("expected 3 page fetches, got %d", source.Calls)
	}
	wantCursors := []string{"", "c1", "c2"}
	for i, want := range wantCursors {
		if source.Cursors[i] != want {
			t.Errorf("fetch %d used cursor %q, want %q", i+1, source.Cursors[i], want)
		}
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts across pages, got %d", len(posts))
	}
}

func TestCollectDegradesToEmptyOnSourceError(t *testing.T) {
	source := &mock.Client{Err: errors.New("connection refused")}

	posts := New(source, nil, testLogger(), testConfig()).Collect(context.Background(), "btc")

	if posts == nil {
		t.Fatal("expected an empty slice, not nil")
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts on source failure, got %d", len(posts))
	}
}

func TestCollectTreatsMalformedPageAsEndOfStream(t *testing.T) {
	source := &mock.Client{
		Pages: []*twitter.Page{
			{Posts: rawPosts("a fine first page of chatter"), NextCursor: "c1"},
			{Posts: nil, NextCursor: "c2"},
		},
	}

	posts := New(source, nil, testLogger(), testConfig()).Collect(context.Background(), "btc")

	if source.Calls != 2 {
		t.Fatalf("expected 2 page fetches, got %d", source.Calls)
	}
	if len(posts) != 1 {
		t.Fatalf("expected the first page to be kept, got %d posts", len(posts))
	}
}

func TestCollectTruncatesAfterDedup(t *testing.T) {
	source := &mock.Client{
		Pages: []*twitter.Page{
			{Posts: rawPosts(
				"alpha thread on accumulation patterns",
				"alpha thread on accumulation patterns https://t.co/x",
				"beta take on distribution into strength",
				"beta take on distribution into strength https://t.co/y",
				"gamma comment on the weekly close levels",
				"gamma comment on the weekly close levels https://t.co/z",
				"delta note about miner selling pressure",
				"delta note about miner selling pressure https://t.co/w",
				"alpha thread on accumulation patterns https://t.co/v",
				"beta take on distribution into strength https://t.co/u",
			)},
		},
	}
	cfg := testConfig()
	cfg.TargetCount = 2

	posts := New(source, nil, testLogger(), cfg).Collect(context.Background(), "btc")

	if len(posts) != 2 {
		t.Fatalf("expected truncation to 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "a" || posts[1].ID != "c" {
		t.Errorf("expected the first two unique posts in fetch order, got %q and %q", posts[0].ID, posts[1].ID)
	}
}

func TestCollectReturnsAccumulatedOnMidPaginationError(t *testing.T) {
	calls := 0
	source := &failAfterClient{
		page:      &twitter.Page{Posts: rawPosts("survivor post before the outage"), NextCursor: "c1"},
		failAfter: 1,
		calls:     &calls,
	}

	posts := New(source, nil, testLogger(), testConfig()).Collect(context.Background(), "btc")

	if calls != 2 {
		t.Fatalf("expected 2 fetches, got %d", calls)
	}
	if len(posts) != 1 {
		t.Fatalf("expected accumulated posts to survive the outage, got %d", len(posts))
	}
}

func TestCollectStopsOnCanceledContext(t *testing.T) {
	source := &mock.Client{
		Pages: []*twitter.Page{
			{Posts: rawPosts("a post we never ask for"), NextCursor: "c1"},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	posts := New(source, nil, testLogger(), testConfig()).Collect(ctx, "btc")

	if source.Calls != 0 {
		t.Fatalf("expected no fetches after cancellation, got %d", source.Calls)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts, got %d", len(posts))
	}
}

func TestCollectAppliesFilterRulesBeforeDedup(t *testing.T) {
	source := &mock.Client{
		Pages: []*twitter.Page{
			{Posts: []twitter.RawPost{
				{ID: "spam", Text: "airdrop click here now", Likes: 0},
				{ID: "real", Text: "thoughtful analysis of the orderbook depth", Likes: 8},
			}},
		},
	}
	rules, err := filter.NewChain([]config.FilterRule{
		{Name: "zero_engagement", Rule: "likes == 0", Result: "drop"},
	}, testLogger())
	if err != nil {
		t.Fatalf("build filter chain: %v", err)
	}

	posts := New(source, rules, testLogger(), testConfig()).Collect(context.Background(), "btc")

	if len(posts) != 1 || posts[0].ID != "real" {
		t.Fatalf("expected only the engaged post to survive, got %+v", posts)
	}
}

type failAfterClient struct {
	page      *twitter.Page
	failAfter int
	calls     *int
}

func (c *failAfterClient) FetchPage(ctx context.Context, query string, pageSize int, cursor string) (*twitter.Page, error) {
	_ = ctx
	_ = query
	_ = pageSize
	_ = cursor
	*c.calls++
	if *c.calls > c.failAfter {
		return nil, errors.New("rate limited")
	}
	return c.page, nil
}
