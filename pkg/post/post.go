package post

import "time"

// Platform identifies which system a post came from.
type Platform string

const (
	PlatformReddit   Platform = "reddit"
	PlatformTelegram Platform = "telegram"
	PlatformYouTube  Platform = "youtube"
	PlatformTwitter  Platform = "twitter"
	PlatformRSS      Platform = "rss"
)

// AllPlatforms returns all known platforms.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformReddit,
		PlatformTelegram,
		PlatformYouTube,
		PlatformTwitter,
		PlatformRSS,
	}
}

// RawRecord is a platform-specific payload as returned by a source adapter,
// before normalization.
type RawRecord map[string]any

// Post is the canonical record shape shared by every source.
type Post struct {
	ID         string         `json:"id" db:"id"`
	Platform   Platform       `json:"platform" db:"platform"`
	ExternalID *string        `json:"external_id" db:"external_id"`
	Content    string         `json:"content" db:"content"`
	Author     *string        `json:"author" db:"author"`
	URL        *string        `json:"url" db:"url"`
	OccurredAt time.Time      `json:"occurred_at" db:"occurred_at"`
	Meta       map[string]any `json:"meta" db:"-"`

	HazardType      string `json:"hazard_type" db:"hazard_type"`
	HazardMatched   bool   `json:"hazard_matched" db:"hazard_matched"`
	Location        string `json:"location" db:"location"`
	LocationMatched bool   `json:"location_matched" db:"location_matched"`
	Source          string `json:"source" db:"source"`

	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`

	MetaJSON string `json:"-" db:"meta"`
}

// Tagged reports whether both tags were filled in by enrichment.
func (p *Post) Tagged() bool {
	return p.HazardType != "" && p.Location != ""
}

// SummaryDigest is the generated summary of one ingestion cycle.
// NumPosts counts every post of the cycle, not only the ones that fed the summary.
type SummaryDigest struct {
	ID          string    `json:"id" db:"id"`
	SummaryText string    `json:"summary_text" db:"summary_text"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
	NumPosts    int       `json:"num_posts" db:"num_posts"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
