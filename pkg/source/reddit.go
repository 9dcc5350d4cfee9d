package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// RedditConfig selects what the Reddit adapter searches for.
type RedditConfig struct {
	Keywords []string
	// Subreddits may contain "+"-joined groups; each is searched separately.
	// Empty searches all of Reddit.
	Subreddits []string
	Limit      int
	BaseURL    string
}

// Reddit searches public Reddit posts without OAuth.
type Reddit struct {
	fetch  *Fetcher
	cfg    RedditConfig
	logger *slog.Logger
}

// NewReddit creates a new Reddit collector.
func NewReddit(cfg RedditConfig, fetch *Fetcher, logger *slog.Logger) *Reddit {
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.reddit.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Reddit{fetch: fetch, cfg: cfg, logger: logger}
}

func (r *Reddit) Name() string            { return string(post.PlatformReddit) }
func (r *Reddit) Platform() post.Platform { return post.PlatformReddit }

// Collect runs the keyword search once per subreddit. A failing subreddit
// is logged and skipped; the returned records are Reddit's own post objects.
func (r *Reddit) Collect(ctx context.Context) ([]post.RawRecord, error) {
	query := strings.Join(r.cfg.Keywords, " OR ")
	if query == "" {
		return nil, fmt.Errorf("reddit: no keywords configured")
	}

	var records []post.RawRecord
	for _, sub := range r.subreddits() {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		var listing redditListing
		if err := r.fetch.GetJSON(ctx, r.searchURL(query, sub), &listing); err != nil {
			r.logger.Warn("reddit search failed", "subreddit", subLabel(sub), "error", err)
			continue
		}
		for _, child := range listing.Data.Children {
			if len(child.Data) > 0 {
				records = append(records, post.RawRecord(child.Data))
			}
		}
	}

	return records, nil
}

func (r *Reddit) subreddits() []string {
	var subs []string
	for _, s := range r.cfg.Subreddits {
		for _, part := range strings.Split(s, "+") {
			if part = strings.TrimSpace(part); part != "" {
				subs = append(subs, part)
			}
		}
	}
	if len(subs) == 0 {
		return []string{""}
	}
	return subs
}

func (r *Reddit) searchURL(query, sub string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "new")
	params.Set("limit", strconv.Itoa(r.cfg.Limit))
	params.Set("include_over_18", "on")

	if sub == "" {
		return r.cfg.BaseURL + "/search.json?" + params.Encode()
	}
	params.Set("restrict_sr", "true")
	return fmt.Sprintf("%s/r/%s/search.json?%s", r.cfg.BaseURL, url.PathEscape(sub), params.Encode())
}

func subLabel(sub string) string {
	if sub == "" {
		return "all"
	}
	return sub
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data map[string]any `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
