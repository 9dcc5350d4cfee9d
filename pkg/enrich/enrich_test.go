package enrich

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/hazardradar/pkg/post"
)

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

func TestMatch_FirstVocabularyEntryWins(t *testing.T) {
	vocab := []string{"flood", "cyclone"}

	// "cyclone" appears earlier in the text, but "flood" is earlier in the vocabulary.
	got, ok := Match("Cyclone brings flood to the coast", vocab)
	require.True(t, ok)
	assert.Equal(t, "flood", got)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	got, ok := Match("TSUNAMI WARNING", []string{"tsunami"})
	require.True(t, ok)
	assert.Equal(t, "tsunami", got)

	got, ok = Match("waves at chennai marina", DefaultLocations)
	require.True(t, ok)
	assert.Equal(t, "Chennai", got)
}

func TestMatch_NoMatch(t *testing.T) {
	_, ok := Match("sunny day", []string{"flood", ""})
	assert.False(t, ok)
}

func TestEnrich_RedditScenario(t *testing.T) {
	e := New(DefaultVocabulary())
	p := post.Post{Content: "Flood warning Chennai", OccurredAt: time.Now().UTC()}

	got := e.Enrich(p, "reddit")

	assert.Equal(t, "flood", got.HazardType)
	assert.True(t, got.HazardMatched)
	assert.Equal(t, "Chennai", got.Location)
	assert.True(t, got.LocationMatched)
	assert.Equal(t, "reddit", got.Source)
	assert.Empty(t, p.HazardType, "input post must not be modified")
}

func TestEnrich_MatchIsIndependentOfSeed(t *testing.T) {
	p := post.Post{Content: "Storm surge floods Mumbai and Kochi"}
	for seed := uint64(0); seed < 20; seed++ {
		got := New(DefaultVocabulary(), seeded(seed)).Enrich(p, "telegram")
		assert.Equal(t, "Mumbai", got.Location)
		assert.Equal(t, "storm surge", got.HazardType)
	}
}

func TestEnrich_FallbackDrawsFromVocabulary(t *testing.T) {
	vocab := NewVocabulary([]string{"cyclone", "flood"}, []string{"Puri", "Goa"})
	e := New(vocab, seeded(7))

	for i := 0; i < 50; i++ {
		got := e.Enrich(post.Post{Content: "nothing relevant here"}, "youtube")
		assert.Contains(t, vocab.Hazards(), got.HazardType)
		assert.Contains(t, vocab.Locations(), got.Location)
		assert.False(t, got.HazardMatched)
		assert.False(t, got.LocationMatched)
	}
}

func TestEnrich_FallbackEmptyContent(t *testing.T) {
	got := New(DefaultVocabulary(), seeded(1)).Enrich(post.Post{}, "rss")
	assert.True(t, got.Tagged())
	assert.Contains(t, DefaultHazards, got.HazardType)
}

func TestEnrich_FallbackIsDeterministicForSeed(t *testing.T) {
	a := New(DefaultVocabulary(), seeded(42)).Enrich(post.Post{Content: "?"}, "x")
	b := New(DefaultVocabulary(), seeded(42)).Enrich(post.Post{Content: "?"}, "x")
	assert.Equal(t, a.HazardType, b.HazardType)
	assert.Equal(t, a.Location, b.Location)
}

func TestNewVocabulary_CopiesInput(t *testing.T) {
	hazards := []string{"flood"}
	v := NewVocabulary(hazards, nil)
	hazards[0] = "changed"

	assert.Equal(t, []string{"flood"}, v.Hazards())
	assert.Equal(t, DefaultLocations, v.Locations())
}

func TestNewVocabulary_DropsBlankEntries(t *testing.T) {
	v := NewVocabulary([]string{"", " flood ", "\t"}, []string{"  ", ""})
	assert.Equal(t, []string{"flood"}, v.Hazards())
	assert.Equal(t, DefaultLocations, v.Locations(), "all-blank list falls back to defaults")

	e := New(v, seeded(3))
	for i := 0; i < 50; i++ {
		got := e.Enrich(post.Post{Content: "nothing relevant here"}, "rss")
		assert.Equal(t, "flood", got.HazardType)
		assert.NotEmpty(t, got.Location)
		assert.True(t, got.Tagged())
	}
}
