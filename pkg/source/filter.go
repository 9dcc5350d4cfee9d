package source

import "strings"

// DefaultHazardKeywords is the base set used to keep hazard-related channel
// messages and feed entries.
var DefaultHazardKeywords = []string{
	"flood", "cyclone", "storm", "rain", "landslide",
	"earthquake", "dam", "relief", "rescue", "disaster",
	"shelter", "alert", "tsunami", "high waves", "surge",
	"coastal", "tide", "erosion",
}

// KeywordFilter holds keyword lists for hazard content matching.
type KeywordFilter struct {
	keywords []string
	exclude  []string
}

// NewKeywordFilter creates a filter with the given keywords. An empty list
// falls back to DefaultHazardKeywords.
func NewKeywordFilter(keywords, excludeKeywords []string) *KeywordFilter {
	if len(keywords) == 0 {
		keywords = DefaultHazardKeywords
	}
	return &KeywordFilter{keywords: lowerAll(keywords), exclude: lowerAll(excludeKeywords)}
}

// Matches returns true if text contains one of the keywords and none of the
// excluded ones. A nil filter matches everything.
func (f *KeywordFilter) Matches(text string) bool {
	if f == nil {
		return true
	}
	lower := strings.ToLower(text)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
