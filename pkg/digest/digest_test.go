package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/hazardradar/pkg/post"
	"github.com/elonfeng/hazardradar/pkg/summarize"
)

// recordingSummarizer returns "S<n>" for the n-th call and keeps every request.
type recordingSummarizer struct {
	mu       sync.Mutex
	requests []summarize.Request
	err      error
}

func (r *recordingSummarizer) Summarize(_ context.Context, req summarize.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.requests = append(r.requests, req)
	return fmt.Sprintf("S%d", len(r.requests)), nil
}

func makePosts(n int, content func(i int) string) []post.Post {
	posts := make([]post.Post, n)
	for i := range posts {
		posts[i] = post.Post{Content: content(i + 1)}
	}
	return posts
}

func TestChunker_Split(t *testing.T) {
	c := NewChunker(4)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, c.Split("abcdefghij"))
	assert.Equal(t, []string{"abcd"}, c.Split("abcd"))
	assert.Nil(t, c.Split(""))
}

func TestChunker_CountsRunes(t *testing.T) {
	c := NewChunker(2)
	assert.Equal(t, []string{"चे", "न्", "नै"}, c.Split("चेन्नै"))
}

func TestChunker_DefaultSize(t *testing.T) {
	c := NewChunker(0)
	chunks := c.Split(strings.Repeat("x", 2500))
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 500)
}

func TestDigest_EmptyBatch(t *testing.T) {
	s := &recordingSummarizer{}
	d, err := New(s, Options{}, nil).Digest(context.Background(), nil)

	assert.Nil(t, d)
	assert.True(t, errors.Is(err, ErrEmptyBatch))
	assert.Empty(t, s.requests)
}

func TestDigest_OnlyFirstThirtyPostsReachSummarizer(t *testing.T) {
	s := &recordingSummarizer{}
	posts := makePosts(45, func(i int) string { return fmt.Sprintf("<p%02d> waves reported", i) })

	d, err := New(s, Options{}, nil).Digest(context.Background(), posts)
	require.NoError(t, err)
	assert.Equal(t, 45, d.NumPosts)

	var seen strings.Builder
	for _, req := range s.requests {
		seen.WriteString(req.Text)
	}
	for i := 1; i <= 30; i++ {
		assert.Contains(t, seen.String(), fmt.Sprintf("<p%02d>", i))
	}
	for i := 31; i <= 45; i++ {
		assert.NotContains(t, seen.String(), fmt.Sprintf("<p%02d>", i))
	}
}

func TestDigest_TruncatesEachPost(t *testing.T) {
	d := New(&recordingSummarizer{}, Options{}, nil)
	posts := []post.Post{
		{Content: strings.Repeat("a", 250)},
		{Content: "short"},
	}
	assert.Equal(t, strings.Repeat("a", 200)+"\nshort", d.Input(posts))
}

func TestDigest_ChunksAndJoinsInOrder(t *testing.T) {
	s := &recordingSummarizer{}
	// 30 posts of 200 chars + 29 newlines = 6029 chars -> 7 chunks.
	posts := makePosts(30, func(int) string { return strings.Repeat("b", 300) })
	clock := clockwork.NewFakeClockAt(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	d, err := New(s, Options{}, clock).Digest(context.Background(), posts)
	require.NoError(t, err)

	require.Len(t, s.requests, 7)
	for i, req := range s.requests {
		assert.True(t, req.Deterministic)
		assert.Equal(t, DefaultMinLength, req.MinLength)
		assert.Equal(t, DefaultMaxLength, req.MaxLength)
		if i < 6 {
			assert.Len(t, []rune(req.Text), 1000)
		}
	}
	assert.Len(t, []rune(s.requests[6].Text), 29)
	assert.Equal(t, "S1 S2 S3 S4 S5 S6 S7", d.SummaryText)
	assert.Equal(t, clock.Now(), d.GeneratedAt)
	assert.NotEmpty(t, d.ID)
}

func TestDigest_SummarizerFailure(t *testing.T) {
	s := &recordingSummarizer{err: errors.New("model unavailable")}
	_, err := New(s, Options{}, nil).Digest(context.Background(), makePosts(2, func(int) string { return "flood" }))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.False(t, errors.Is(err, ErrEmptyBatch))
}

func TestDigest_BlankContentStillProducesText(t *testing.T) {
	empty := summarize.Func(func(context.Context, summarize.Request) (string, error) { return "", nil })
	d, err := New(empty, Options{}, nil).Digest(context.Background(), makePosts(3, func(int) string { return "" }))

	require.NoError(t, err)
	assert.NotEmpty(t, d.SummaryText)
	assert.Equal(t, 3, d.NumPosts)
}

func TestDigest_WithExtractiveSummarizer(t *testing.T) {
	posts := []post.Post{
		{Content: "Flood warning Chennai. Residents moved to shelters."},
		{Content: "Cyclone approaching Puri coast."},
	}
	d, err := New(summarize.NewExtractive(), Options{MinLength: 1, MaxLength: 6}, nil).Digest(context.Background(), posts)

	require.NoError(t, err)
	assert.Equal(t, "Flood warning Chennai.", d.SummaryText)
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{MinLength: 100, MaxLength: 10}.withDefaults()
	assert.Equal(t, 10, o.MinLength)
	assert.Equal(t, DefaultMaxPosts, o.MaxPosts)
	assert.Equal(t, DefaultPerPostChars, o.PerPostChars)
	assert.Equal(t, DefaultChunkSize, o.ChunkSize)
}
