package filter

import (
	"io"
	"log/slog"
	"testing"

	"github.com/bakkerme/chartbuzz/internal/config"
	"github.com/bakkerme/chartbuzz/internal/twitter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainDropsMatchingPosts(t *testing.T) {
	chain, err := NewChain([]config.FilterRule{
		{Name: "zero_engagement", Rule: "likes + retweets == 0", Result: "drop"},
	}, testLogger())
	if err != nil {
		t.Fatalf("expected rule to compile, got %v", err)
	}

	posts := []twitter.Post{
		{ID: "1", Likes: 0, Retweets: 0},
		{ID: "2", Likes: 3, Retweets: 1},
	}

	kept := chain.Apply(posts)
	if len(kept) != 1 {
		t.Fatalf("expected 1 post to survive, got %d", len(kept))
	}
	if kept[0].ID != "2" {
		t.Errorf("expected post 2 to survive, got %s", kept[0].ID)
	}
}

func TestChainEvaluatesTextAndFlags(t *testing.T) {
	chain, err := NewChain([]config.FilterRule{
		{Name: "no_short_retweets", Rule: "is_retweet && text.length < 20", Result: "drop"},
	}, testLogger())
	if err != nil {
		t.Fatalf("expected rule to compile, got %v", err)
	}

	posts := []twitter.Post{
		{ID: "short-rt", Text: "gm", IsRetweet: true},
		{ID: "long-rt", Text: "a long enough retweet about the token", IsRetweet: true},
		{ID: "short-original", Text: "gm"},
	}

	kept := chain.Apply(posts)
	if len(kept) != 2 {
		t.Fatalf("expected 2 posts to survive, got %d", len(kept))
	}
	if kept[0].ID != "long-rt" || kept[1].ID != "short-original" {
		t.Errorf("unexpected survivors: %v", []string{kept[0].ID, kept[1].ID})
	}
}

func TestEmptyChainKeepsEverything(t *testing.T) {
	chain, err := NewChain(nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	posts := []twitter.Post{{ID: "1"}, {ID: "2"}}
	if kept := chain.Apply(posts); len(kept) != 2 {
		t.Fatalf("expected all posts kept, got %d", len(kept))
	}
}

func TestNewChainRejectsBadExpression(t *testing.T) {
	if _, err := NewChain([]config.FilterRule{
		{Name: "broken", Rule: "likes +", Result: "drop"},
	}, testLogger()); err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestNonBoolRuleKeepsPost(t *testing.T) {
	chain, err := NewChain([]config.FilterRule{
		{Name: "not_bool", Rule: "likes + retweets", Result: "drop"},
	}, testLogger())
	if err != nil {
		t.Fatalf("expected rule to compile, got %v", err)
	}
	posts := []twitter.Post{{ID: "1", Likes: 2}}
	if kept := chain.Apply(posts); len(kept) != 1 {
		t.Fatalf("expected post to be kept when rule is not boolean, got %d", len(kept))
	}
}
