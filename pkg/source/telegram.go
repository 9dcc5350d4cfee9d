package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// TelegramConfig selects a public channel and how many messages to keep.
type TelegramConfig struct {
	Channel string
	Limit   int
	BaseURL string
	// Filter keeps only matching messages when set.
	Filter *KeywordFilter
}

// Telegram scrapes the public web preview of a channel at t.me/s/<channel>.
type Telegram struct {
	fetch  *Fetcher
	cfg    TelegramConfig
	logger *slog.Logger
}

// NewTelegram creates a channel scraper.
func NewTelegram(cfg TelegramConfig, fetch *Fetcher, logger *slog.Logger) *Telegram {
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://t.me"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Channel = strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "@")
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{fetch: fetch, cfg: cfg, logger: logger}
}

func (t *Telegram) Name() string            { return string(post.PlatformTelegram) }
func (t *Telegram) Platform() post.Platform { return post.PlatformTelegram }

// Collect returns up to Limit messages from the channel page.
func (t *Telegram) Collect(ctx context.Context) ([]post.RawRecord, error) {
	if t.cfg.Channel == "" {
		return nil, fmt.Errorf("telegram: no channel configured")
	}

	body, err := t.fetch.Get(ctx, fmt.Sprintf("%s/s/%s", t.cfg.BaseURL, t.cfg.Channel))
	if err != nil {
		return nil, fmt.Errorf("fetch telegram %s: %w", t.cfg.Channel, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse telegram %s: %w", t.cfg.Channel, err)
	}
	return t.parse(doc), nil
}

func (t *Telegram) parse(doc *goquery.Document) []post.RawRecord {
	var records []post.RawRecord

	doc.Find("div.tgme_widget_message").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		if len(records) >= t.cfg.Limit {
			return false
		}

		text := messageText(m.Find("div.tgme_widget_message_text").First())
		if t.cfg.Filter != nil && !t.cfg.Filter.Matches(text) {
			return true
		}

		date := m.Find("a.tgme_widget_message_date").First()
		postID := ""
		if href, ok := date.Attr("href"); ok {
			parts := strings.Split(strings.Trim(href, "/"), "/")
			if last := parts[len(parts)-1]; isDigits(last) {
				postID = last
			}
		}
		if postID == "" {
			if dp, ok := m.Attr("data-post"); ok {
				postID = dp[strings.LastIndex(dp, "/")+1:]
			}
		}

		rec := post.RawRecord{
			"message": text,
			"channel": t.cfg.Channel,
			"meta":    map[string]any{"channel": t.cfg.Channel},
		}
		if dt, ok := date.Find("time").Attr("datetime"); ok && dt != "" {
			rec["datetime"] = dt
		}
		if postID != "" {
			rec["post_id"] = postID
			rec["url"] = fmt.Sprintf("https://t.me/%s/%s", t.cfg.Channel, postID)
		}
		if author := strings.TrimSpace(m.Find("a.tgme_widget_message_from_author").First().Text()); author != "" {
			rec["author"] = author
		}
		if views := strings.TrimSpace(m.Find("span.tgme_widget_message_views").First().Text()); views != "" {
			rec["views"] = views
		}

		records = append(records, rec)
		return true
	})

	return records
}

// messageText keeps line breaks and trims each line.
func messageText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	s = s.Clone()
	s.Find("br").ReplaceWithHtml("\n")

	lines := strings.Split(s.Text(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
