package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/hazardradar/pkg/post"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2025, 10, 20, 6, 0, 0, 0, time.UTC)

func testPost(id string, platform post.Platform, hazard, location string, occurred time.Time) post.Post {
	return post.Post{
		ID:              id,
		Platform:        platform,
		ExternalID:      post.StringPtr("ext-" + id),
		Content:         hazard + " near " + location,
		Author:          post.StringPtr("reporter"),
		OccurredAt:      occurred,
		Meta:            map[string]any{"score": 3.0},
		HazardType:      hazard,
		HazardMatched:   true,
		Location:        location,
		LocationMatched: true,
		Source:          string(platform),
		IngestedAt:      base.Add(time.Hour),
	}
}

func TestInsertPost_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPost("p1", post.PlatformReddit, "flood", "Chennai", base)
	p.URL = nil
	p.LocationMatched = false
	require.NoError(t, s.InsertPost(ctx, &p))

	got, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, post.PlatformReddit, got.Platform)
	assert.Equal(t, "ext-p1", post.Deref(got.ExternalID))
	assert.Nil(t, got.URL)
	assert.Equal(t, "flood near Chennai", got.Content)
	assert.True(t, got.OccurredAt.Equal(base))
	assert.Equal(t, map[string]any{"score": 3.0}, got.Meta)
	assert.True(t, got.HazardMatched)
	assert.False(t, got.LocationMatched)
	assert.Equal(t, "reddit", got.Source)
}

func TestInsertPost_NilMetaStoredAsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPost("p1", post.PlatformTelegram, "cyclone", "Puri", base)
	p.Meta = nil
	p.ExternalID = nil
	require.NoError(t, s.InsertPost(ctx, &p))

	got, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.NotNil(t, got.Meta)
	assert.Empty(t, got.Meta)
	assert.Nil(t, got.ExternalID)
}

func TestInsertPost_RejectsIncompletePost(t *testing.T) {
	s := newTestStore(t)

	p := testPost("p1", post.PlatformReddit, "", "Chennai", base)
	err := s.InsertPost(context.Background(), &p)
	assert.True(t, errors.Is(err, ErrIncompletePost))
}

func TestInsertPosts_EmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertPosts(context.Background(), nil))
	require.NoError(t, s.InsertPosts(context.Background(), []post.Post{}))

	counts, err := s.CountPostsByPlatform(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestInsertPosts_SameItemTwiceIsAppended(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testPost("a", post.PlatformReddit, "flood", "Chennai", base)
	second := testPost("b", post.PlatformReddit, "flood", "Chennai", base)
	second.ExternalID = first.ExternalID

	require.NoError(t, s.InsertPosts(ctx, []post.Post{first}))
	require.NoError(t, s.InsertPosts(ctx, []post.Post{second}))

	counts, err := s.CountPostsByPlatform(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[post.PlatformReddit])
}

func TestInsertPosts_BatchIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testPost("dup", post.PlatformReddit, "flood", "Chennai", base)
	b := testPost("dup", post.PlatformReddit, "flood", "Chennai", base)
	require.Error(t, s.InsertPosts(ctx, []post.Post{a, b}))

	counts, err := s.CountPostsByPlatform(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[post.PlatformReddit])
}

func TestListPosts_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fallback := testPost("4", post.PlatformYouTube, "tsunami", "Goa", base.Add(3*time.Hour))
	fallback.HazardMatched = false
	require.NoError(t, s.InsertPosts(ctx, []post.Post{
		testPost("1", post.PlatformReddit, "flood", "Chennai", base),
		testPost("2", post.PlatformReddit, "cyclone", "Puri", base.Add(time.Hour)),
		testPost("3", post.PlatformTelegram, "flood", "Mumbai", base.Add(2*time.Hour)),
		fallback,
	}))

	all, err := s.ListPosts(ctx, PostListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "4", all[0].ID, "newest first")

	reddit, err := s.ListPosts(ctx, PostListOpts{Platform: post.PlatformReddit})
	require.NoError(t, err)
	assert.Len(t, reddit, 2)

	floods, err := s.ListPosts(ctx, PostListOpts{HazardType: "FLOOD"})
	require.NoError(t, err)
	assert.Len(t, floods, 2)

	puri, err := s.ListPosts(ctx, PostListOpts{Location: "puri"})
	require.NoError(t, err)
	require.Len(t, puri, 1)
	assert.Equal(t, "2", puri[0].ID)

	recent, err := s.ListPosts(ctx, PostListOpts{Since: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	matched, err := s.ListPosts(ctx, PostListOpts{MatchedOnly: true})
	require.NoError(t, err)
	assert.Len(t, matched, 3)

	limited, err := s.ListPosts(ctx, PostListOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListPosts_SinceComparesInstants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ist := time.FixedZone("IST", 5*3600+1800)
	require.NoError(t, s.InsertPosts(ctx, []post.Post{
		testPost("before", post.PlatformReddit, "flood", "Chennai", base.Add(-time.Nanosecond)),
		testPost("exact", post.PlatformReddit, "flood", "Chennai", base),
		testPost("fraction", post.PlatformReddit, "flood", "Chennai", base.Add(250*time.Millisecond)),
		testPost("offset", post.PlatformReddit, "flood", "Chennai", base.Add(2*time.Second).In(ist)),
	}))

	got, err := s.ListPosts(ctx, PostListOpts{Since: base})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"offset", "fraction", "exact"}, ids)

	got, err = s.ListPosts(ctx, PostListOpts{Since: base.Add(250 * time.Millisecond).In(ist)})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	var stored string
	require.NoError(t, s.db.GetContext(ctx, &stored, "SELECT CAST(occurred_at AS TEXT) FROM posts WHERE id = ?", "offset"))
	assert.Equal(t, "2025-10-20 06:00:02.000000000", stored)

	p, err := s.GetPost(ctx, "fraction")
	require.NoError(t, err)
	assert.True(t, p.OccurredAt.Equal(base.Add(250*time.Millisecond)))
}

func TestDigests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertDigest(ctx, &post.SummaryDigest{ID: "d1", SummaryText: "older", GeneratedAt: base, NumPosts: 3}))
	require.NoError(t, s.InsertDigest(ctx, &post.SummaryDigest{ID: "d2", SummaryText: "newer", GeneratedAt: base.Add(time.Hour), NumPosts: 45}))

	digests, err := s.ListDigests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, digests, 2)
	assert.Equal(t, "newer", digests[0].SummaryText)
	assert.Equal(t, 45, digests[0].NumPosts)
	assert.True(t, digests[0].GeneratedAt.Equal(base.Add(time.Hour)))
}

func TestPing(t *testing.T) {
	assert.NoError(t, newTestStore(t).Ping(context.Background()))
}
