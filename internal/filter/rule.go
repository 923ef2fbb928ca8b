// Package filter applies configured expr-lang rules to collected posts before
// deduplication, so obvious spam never reaches the chart overlay.
package filter

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/chartbuzz/internal/config"
	"github.com/bakkerme/chartbuzz/internal/twitter"
)

type rule struct {
	name    string
	result  string
	program *vm.Program
}

// Chain holds compiled rules and evaluates them in order against each post.
type Chain struct {
	rules  []rule
	logger *slog.Logger
}

// NewChain compiles the configured rules once. An empty rule list yields a
// chain that keeps everything.
func NewChain(cfgs []config.FilterRule, logger *slog.Logger) (*Chain, error) {
	if logger == nil {
		logger = slog.Default()
	}
	chain := &Chain{logger: logger}
	for _, cfg := range cfgs {
		program, err := expr.Compile(cfg.Rule, expr.Env(map[string]interface{}{}))
		if err != nil {
			return nil, fmt.Errorf("compile filter rule %q: %w", cfg.Name, err)
		}
		chain.rules = append(chain.rules, rule{name: cfg.Name, result: cfg.Result, program: program})
	}
	return chain, nil
}

// Apply returns the posts that survive every rule, in their original order.
// A rule that fails to evaluate for a post is logged and does not drop it.
func (c *Chain) Apply(posts []twitter.Post) []twitter.Post {
	if len(c.rules) == 0 {
		return posts
	}

	kept := make([]twitter.Post, 0, len(posts))
	for _, post := range posts {
		env := ruleEnv(post)
		if c.shouldDrop(post, env) {
			continue
		}
		kept = append(kept, post)
	}
	return kept
}

func (c *Chain) shouldDrop(post twitter.Post, env map[string]interface{}) bool {
	for _, r := range c.rules {
		result, err := expr.Run(r.program, env)
		if err != nil {
			c.logger.Warn("filter rule failed, keeping post",
				slog.String("rule", r.name),
				slog.String("post_id", post.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		matched, ok := result.(bool)
		if !ok {
			c.logger.Warn("filter rule did not return bool, keeping post",
				slog.String("rule", r.name),
				slog.String("post_id", post.ID),
			)
			continue
		}
		if matched && r.result == "drop" {
			return true
		}
	}
	return false
}

func ruleEnv(post twitter.Post) map[string]interface{} {
	return map[string]interface{}{
		"author": post.Username,
		"text": map[string]interface{}{
			"value":  post.Text,
			"length": len(post.Text),
		},
		"likes":      post.Likes,
		"retweets":   post.Retweets,
		"replies":    post.Replies,
		"hashtags":   map[string]interface{}{"count": len(post.Hashtags)},
		"mentions":   map[string]interface{}{"count": len(post.Mentions)},
		"urls":       map[string]interface{}{"count": len(post.URLs)},
		"is_retweet": post.IsRetweet,
		"is_quoted":  post.IsQuoted,
		"is_reply":   post.IsReply,
		"created_at": post.CreatedAt,
	}
}
