// Package enrich tags posts with a hazard type and a location.
package enrich

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// Tag is one enrichment result. Matched is false when Value came from the
// random fallback rather than from the post's content.
type Tag struct {
	Value   string
	Matched bool
}

// Match returns the first vocabulary entry contained in text, compared
// case-insensitively. The scan follows vocabulary order, not the position
// of the match inside text.
func Match(text string, vocab []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, entry := range vocab {
		if entry == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(entry)) {
			return entry, true
		}
	}
	return "", false
}

// Enricher assigns hazard and location tags to unified posts.
type Enricher struct {
	vocab Vocabulary

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithRand sets the random source used for fallback tags.
func WithRand(r *rand.Rand) Option {
	return func(e *Enricher) {
		if r != nil {
			e.rng = r
		}
	}
}

// New creates an Enricher over vocab.
func New(vocab Vocabulary, opts ...Option) *Enricher {
	if len(vocab.hazards) == 0 || len(vocab.locations) == 0 {
		vocab = NewVocabulary(vocab.hazards, vocab.locations)
	}
	seed := uint64(time.Now().UnixNano())
	e := &Enricher{
		vocab: vocab,
		rng:   rand.New(rand.NewPCG(seed, seed>>1)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Hazard tags text with a hazard type.
func (e *Enricher) Hazard(text string) Tag {
	return e.tag(text, e.vocab.hazards)
}

// Location tags text with a location.
func (e *Enricher) Location(text string) Tag {
	return e.tag(text, e.vocab.locations)
}

func (e *Enricher) tag(text string, vocab []string) Tag {
	if v, ok := Match(text, vocab); ok {
		return Tag{Value: v, Matched: true}
	}
	e.mu.Lock()
	i := e.rng.IntN(len(vocab))
	e.mu.Unlock()
	return Tag{Value: vocab[i], Matched: false}
}

// Enrich returns a copy of p with hazard, location and source filled in.
// sourceLabel is stored verbatim.
func (e *Enricher) Enrich(p post.Post, sourceLabel string) post.Post {
	hazard := e.Hazard(p.Content)
	location := e.Location(p.Content)

	p.HazardType = hazard.Value
	p.HazardMatched = hazard.Matched
	p.Location = location.Value
	p.LocationMatched = location.Matched
	p.Source = sourceLabel
	return p
}
