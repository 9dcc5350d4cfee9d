package enrich

import "strings"

// DefaultHazards is the ordered hazard vocabulary. Order is the tie-break:
// when a post mentions several hazards the earliest entry here wins.
var DefaultHazards = []string{
	"tsunami",
	"cyclone",
	"storm surge",
	"flood",
	"high waves",
	"swell surge",
	"rip current",
	"coastal erosion",
	"abnormal tide",
	"oil spill",
}

// DefaultLocations is the ordered location vocabulary, coastal India first
// by city then by state.
var DefaultLocations = []string{
	"Chennai",
	"Mumbai",
	"Kolkata",
	"Visakhapatnam",
	"Puri",
	"Kochi",
	"Goa",
	"Mangaluru",
	"Bhubaneswar",
	"Puducherry",
	"Andaman",
	"Odisha",
	"Tamil Nadu",
	"Kerala",
	"Andhra Pradesh",
	"West Bengal",
	"Gujarat",
	"Karnataka",
	"Maharashtra",
}

// Vocabulary holds the ordered, immutable tag lists used by an Enricher.
type Vocabulary struct {
	hazards   []string
	locations []string
}

// NewVocabulary copies the given lists, trimming entries and dropping blank
// ones. A list left empty falls back to the defaults.
func NewVocabulary(hazards, locations []string) Vocabulary {
	v := Vocabulary{hazards: clean(hazards), locations: clean(locations)}
	if len(v.hazards) == 0 {
		v.hazards = clean(DefaultHazards)
	}
	if len(v.locations) == 0 {
		v.locations = clean(DefaultLocations)
	}
	return v
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(nil, nil)
}

// Hazards returns a copy of the hazard list.
func (v Vocabulary) Hazards() []string { return append([]string(nil), v.hazards...) }

// Locations returns a copy of the location list.
func (v Vocabulary) Locations() []string { return append([]string(nil), v.locations...) }
