// Package unify maps raw source records into the canonical post shape.
package unify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// fieldMap lists, per canonical field, the raw keys to look at in order.
type fieldMap struct {
	joined  []string // content assembled from every present key, newline separated
	content []string // first non-empty key wins
	time    []string
	author  []string
	url     []string
	id      []string
	meta    []string // raw keys copied into Meta when present
	link    func(raw post.RawRecord) string
}

// Generic keys used by records an adapter already shaped, checked after the
// platform-specific ones.
var generic = fieldMap{
	content: []string{"content", "text", "body"},
	time:    []string{"date", "created_at", "timestamp", "published"},
	author:  []string{"author", "user"},
	url:     []string{"url", "link"},
	id:      []string{"id"},
}

var platformFields = map[post.Platform]fieldMap{
	post.PlatformReddit: {
		joined: []string{"title", "selftext"},
		time:   []string{"created_utc", "created"},
		author: []string{"author"},
		id:     []string{"id", "name"},
		meta:   []string{"subreddit", "score", "num_comments"},
		link:   redditLink,
	},
	post.PlatformTelegram: {
		content: []string{"message", "text"},
		time:    []string{"datetime", "date"},
		author:  []string{"author", "from_author"},
		id:      []string{"post_id", "data-post"},
		meta:    []string{"channel", "views"},
	},
	post.PlatformYouTube: {
		content: []string{"textOriginal", "textDisplay"},
		time:    []string{"publishedAt", "published", "updatedAt"},
		author:  []string{"authorDisplayName"},
		id:      []string{"commentId", "id"},
		meta:    []string{"videoId", "videoTitle", "likeCount"},
		link:    youtubeLink,
	},
	post.PlatformTwitter: {
		joined: []string{"title", "description"},
		time:   []string{"published", "updated"},
		author: []string{"account", "username"},
		url:    []string{"link"},
		id:     []string{"guid"},
		meta:   []string{"account", "likes", "shares"},
	},
	post.PlatformRSS: {
		joined: []string{"title", "description"},
		time:   []string{"published", "updated"},
		url:    []string{"link"},
		id:     []string{"guid"},
		meta:   []string{"feed_name", "categories"},
	},
}

// Unifier converts raw records into posts. It is safe for concurrent use.
type Unifier struct {
	clock clockwork.Clock
	newID func() string
}

// New creates a Unifier. A nil clock uses real time.
func New(clock clockwork.Clock) *Unifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Unifier{clock: clock, newID: uuid.NewString}
}

// Unify maps raw into a Post for the given platform.
//
// Missing optional fields become nil, missing meta becomes an empty map and
// an absent or unparseable timestamp falls back to the current UTC time.
// Unify never fails: one malformed record must not abort a batch.
func (u *Unifier) Unify(raw post.RawRecord, platform post.Platform) post.Post {
	now := u.clock.Now().UTC()
	fm := platformFields[platform]

	occurred, ok := NormalizeTime(pickValue(raw, append(fm.time, generic.time...)...))
	if !ok {
		occurred = now
	}

	url := ""
	if fm.link != nil {
		url = fm.link(raw)
	}
	if url == "" {
		url = pickStr(raw, append(fm.url, generic.url...)...)
	}

	return post.Post{
		ID:         u.newID(),
		Platform:   platform,
		ExternalID: post.StringPtr(pickID(raw, append(fm.id, generic.id...)...)),
		Content:    content(raw, fm),
		Author:     post.StringPtr(pickStr(raw, append(fm.author, generic.author...)...)),
		URL:        post.StringPtr(url),
		OccurredAt: occurred,
		Meta:       meta(raw, fm.meta),
		IngestedAt: now,
	}
}

func content(raw post.RawRecord, fm fieldMap) string {
	if len(fm.joined) > 0 {
		var parts []string
		for _, k := range fm.joined {
			if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.TrimSpace(strings.Join(parts, "\n"))
		}
	}
	return pickStr(raw, append(fm.content, generic.content...)...)
}

func meta(raw post.RawRecord, keys []string) map[string]any {
	out := make(map[string]any)
	switch m := raw["meta"].(type) {
	case map[string]any:
		for k, v := range m {
			out[k] = v
		}
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	}
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

func redditLink(raw post.RawRecord) string {
	permalink := pickStr(raw, "permalink")
	if permalink == "" {
		return ""
	}
	if strings.HasPrefix(permalink, "http") {
		return permalink
	}
	return "https://www.reddit.com" + permalink
}

func youtubeLink(raw post.RawRecord) string {
	if u := pickStr(raw, "url"); u != "" {
		return u
	}
	videoID := pickStr(raw, "videoId")
	if videoID == "" {
		if m, ok := raw["meta"].(map[string]any); ok {
			videoID, _ = m["videoId"].(string)
		}
	}
	if videoID == "" {
		return ""
	}
	if commentID := pickStr(raw, "commentId", "id"); commentID != "" {
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s&lc=%s", videoID, commentID)
	}
	return "https://www.youtube.com/watch?v=" + videoID
}

// pickStr returns the first non-empty string value among keys.
func pickStr(m post.RawRecord, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// pickValue returns the first non-nil value among keys.
func pickValue(m post.RawRecord, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

// pickID is pickStr that also accepts numeric identifiers.
func pickID(m post.RawRecord, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
