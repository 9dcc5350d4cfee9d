package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// FeedURL is a named RSS/Atom feed URL.
type FeedURL struct {
	Name string
	URL  string
}

// FeedConfig describes one feed-backed source.
type FeedConfig struct {
	Feeds []FeedURL
	// Limit caps entries per feed; zero keeps all.
	Limit int
	// MaxAge drops entries published longer ago; zero keeps all.
	MaxAge time.Duration
	Filter *KeywordFilter
}

// Feed collects entries from RSS/Atom feeds. It backs both plain RSS
// (including RSSHub bridges) and Twitter/X via Nitter.
type Feed struct {
	platform post.Platform
	nameKey  string // raw key holding the feed name
	rewrite  func(link string) string
	parser   *gofeed.Parser
	fetch    *Fetcher
	cfg      FeedConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewRSS creates a collector over generic RSS/Atom feeds.
func NewRSS(cfg FeedConfig, fetch *Fetcher, logger *slog.Logger) *Feed {
	return newFeed(post.PlatformRSS, "feed_name", cfg, fetch, logger)
}

// NewNitter creates a Twitter/X collector reading account timelines through
// a Nitter instance's RSS output. Links are rewritten to x.com.
func NewNitter(nitterURL string, accounts []string, cfg FeedConfig, fetch *Fetcher, logger *slog.Logger) *Feed {
	if nitterURL == "" {
		nitterURL = "https://nitter.net"
	}
	nitterURL = strings.TrimRight(nitterURL, "/")

	cfg.Feeds = nil
	for _, account := range accounts {
		account = strings.TrimPrefix(strings.TrimSpace(account), "@")
		if account == "" {
			continue
		}
		cfg.Feeds = append(cfg.Feeds, FeedURL{Name: account, URL: fmt.Sprintf("%s/%s/rss", nitterURL, account)})
	}

	f := newFeed(post.PlatformTwitter, "account", cfg, fetch, logger)
	f.rewrite = func(link string) string {
		return strings.Replace(link, nitterURL, "https://x.com", 1)
	}
	return f
}

func newFeed(platform post.Platform, nameKey string, cfg FeedConfig, fetch *Fetcher, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		platform: platform,
		nameKey:  nameKey,
		parser:   gofeed.NewParser(),
		fetch:    fetch,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (f *Feed) Name() string            { return string(f.platform) }
func (f *Feed) Platform() post.Platform { return f.platform }

// Collect reads every configured feed. A failing feed is logged and skipped.
func (f *Feed) Collect(ctx context.Context) ([]post.RawRecord, error) {
	var records []post.RawRecord

	for _, feed := range f.cfg.Feeds {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		recs, err := f.collectFeed(ctx, feed)
		if err != nil {
			f.logger.Warn("feed failed", "platform", f.platform, "feed", feed.Name, "error", err)
			continue
		}
		records = append(records, recs...)
	}

	return records, nil
}

func (f *Feed) collectFeed(ctx context.Context, feed FeedURL) ([]post.RawRecord, error) {
	body, err := f.fetch.Get(ctx, feed.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed.Name, err)
	}

	parsed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feed.Name, err)
	}

	var cutoff time.Time
	if f.cfg.MaxAge > 0 {
		cutoff = f.now().Add(-f.cfg.MaxAge)
	}

	var records []post.RawRecord
	for _, entry := range parsed.Items {
		if f.cfg.Limit > 0 && len(records) >= f.cfg.Limit {
			break
		}

		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		if published != nil && !cutoff.IsZero() && published.Before(cutoff) {
			continue
		}

		if f.cfg.Filter != nil && !f.cfg.Filter.Matches(entry.Title+" "+entry.Description) {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}
		if f.rewrite != nil {
			link = f.rewrite(link)
		}

		rec := post.RawRecord{
			"title":       entry.Title,
			"description": entry.Description,
			"link":        link,
			"guid":        entry.GUID,
			f.nameKey:     feed.Name,
		}
		switch {
		case published != nil:
			rec["published"] = *published
		case entry.Published != "":
			rec["published"] = entry.Published
		}
		if entry.Author != nil && entry.Author.Name != "" {
			rec["author"] = entry.Author.Name
		}
		if len(entry.Categories) > 0 {
			rec["categories"] = entry.Categories
		}
		records = append(records, rec)
	}

	return records, nil
}
