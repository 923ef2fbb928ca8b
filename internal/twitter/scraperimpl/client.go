// Package scraperimpl implements twitter.SearchClient on top of a logged-in
// scraper session. The session is process-wide: established lazily on first
// use, persisted as a cookie file across restarts, and re-established when
// the source reports the login as gone.
package scraperimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	twitterscraper "github.com/imperatrona/twitter-scraper"
	"golang.org/x/sync/singleflight"

	"github.com/bakkerme/chartbuzz/internal/retry"
	"github.com/bakkerme/chartbuzz/internal/twitter"
)

type Credentials struct {
	Username string
	Password string
}

type Client struct {
	scraper     *twitterscraper.Scraper
	logger      *slog.Logger
	creds       Credentials
	cookiesPath string
	login       singleflight.Group
}

func New(logger *slog.Logger, creds Credentials, cookiesPath string) *Client {
	scraper := twitterscraper.New()
	scraper.SetSearchMode(twitterscraper.SearchLatest)
	return &Client{
		scraper:     scraper,
		logger:      logger,
		creds:       creds,
		cookiesPath: cookiesPath,
	}
}

var _ twitter.SearchClient = (*Client)(nil)

// EnsureSession makes sure the scraper is logged in, restoring a saved cookie
// jar first and falling back to a credentialed login with backoff. Concurrent
// callers share a single login attempt.
func (c *Client) EnsureSession(ctx context.Context) error {
	if c.scraper.IsLoggedIn() {
		return nil
	}
	_, err, _ := c.login.Do("login", func() (interface{}, error) {
		if c.scraper.IsLoggedIn() {
			return nil, nil
		}
		if c.restoreCookies() && c.scraper.IsLoggedIn() {
			c.logger.Info("twitter session restored from cookie file")
			return nil, nil
		}
		err := retry.Do(ctx, c.logger, "twitter login", func() error {
			return c.scraper.Login(c.creds.Username, c.creds.Password)
		}, retry.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("twitter login: %w", err)
		}
		c.logger.Info("logged in to twitter", slog.String("username", c.creds.Username))
		c.saveCookies()
		return nil, nil
	})
	return err
}

// FetchPage fetches one page of search results. An authentication failure
// mid-flight triggers one re-login and one retry of the page.
func (c *Client) FetchPage(ctx context.Context, query string, pageSize int, cursor string) (*twitter.Page, error) {
	if err := c.EnsureSession(ctx); err != nil {
		return nil, err
	}

	tweets, next, err := c.scraper.FetchSearchTweets(query, pageSize, cursor)
	if err != nil && !c.scraper.IsLoggedIn() {
		c.logger.Warn("twitter session expired, re-authenticating", slog.String("error", err.Error()))
		if err := c.EnsureSession(ctx); err != nil {
			return nil, err
		}
		tweets, next, err = c.scraper.FetchSearchTweets(query, pageSize, cursor)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch search page: %w", err)
	}

	page := &twitter.Page{
		Posts:      make([]twitter.RawPost, 0, len(tweets)),
		NextCursor: next,
	}
	for _, tweet := range tweets {
		if tweet == nil {
			continue
		}
		page.Posts = append(page.Posts, rawFromTweet(tweet))
	}
	return page, nil
}

func rawFromTweet(tweet *twitterscraper.Tweet) twitter.RawPost {
	raw := twitter.RawPost{
		ID:        tweet.ID,
		Username:  tweet.Username,
		Text:      tweet.Text,
		Likes:     tweet.Likes,
		Retweets:  tweet.Retweets,
		Replies:   tweet.Replies,
		Hashtags:  tweet.Hashtags,
		URLs:      tweet.URLs,
		IsRetweet: tweet.IsRetweet,
		IsQuoted:  tweet.IsQuoted,
		IsReply:   tweet.IsReply,
	}
	if !tweet.TimeParsed.IsZero() {
		parsed := tweet.TimeParsed
		raw.CreatedAt = &parsed
	}
	for _, mention := range tweet.Mentions {
		raw.Mentions = append(raw.Mentions, mention.Username)
	}
	for _, photo := range tweet.Photos {
		raw.Photos = append(raw.Photos, photo.URL)
	}
	for _, video := range tweet.Videos {
		raw.Videos = append(raw.Videos, video.URL)
	}
	return raw
}

func (c *Client) restoreCookies() bool {
	if c.cookiesPath == "" {
		return false
	}
	data, err := os.ReadFile(c.cookiesPath)
	if err != nil {
		return false
	}
	var cookies []*http.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		c.logger.Warn("ignoring unreadable cookie file", slog.String("path", c.cookiesPath), slog.String("error", err.Error()))
		return false
	}
	c.scraper.SetCookies(cookies)
	return true
}

func (c *Client) saveCookies() {
	if c.cookiesPath == "" {
		return
	}
	data, err := json.Marshal(c.scraper.GetCookies())
	if err != nil {
		return
	}
	if err := os.WriteFile(c.cookiesPath, data, 0o600); err != nil {
		c.logger.Warn("failed to persist twitter cookies", slog.String("path", c.cookiesPath), slog.String("error", err.Error()))
	}
}
