package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/hazardradar/pkg/post"
)

const redditListingJSON = `{
  "data": {
    "children": [
      {"data": {"id": "abc", "title": "Flood warning Chennai", "selftext": "", "created_utc": 1700000000, "author": "x", "permalink": "/r/chennai/comments/abc/flood/", "subreddit": "chennai", "score": 12}},
      {"data": {"id": "def", "title": "Cyclone update", "selftext": "Rain since morning", "created_utc": 1700000100, "author": "y", "permalink": "/r/chennai/comments/def/cyclone/"}}
    ]
  }
}`

func TestReddit_SearchesEachSubreddit(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		q := r.URL.Query()
		assert.Equal(t, "cyclone OR flood", q.Get("q"))
		assert.Equal(t, "new", q.Get("sort"))
		assert.Equal(t, "true", q.Get("restrict_sr"))
		assert.Equal(t, "10", q.Get("limit"))

		switch r.URL.Path {
		case "/r/chennai/search.json":
			_, _ = w.Write([]byte(redditListingJSON))
		case "/r/kolkata/search.json":
			_, _ = w.Write([]byte(`{"data":{"children":[]}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	r := NewReddit(RedditConfig{
		Keywords:   []string{"cyclone", "flood"},
		Subreddits: []string{"chennai+mumbai", "kolkata"},
		Limit:      10,
		BaseURL:    srv.URL,
	}, testFetcher(0), nil)

	recs, err := r.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Flood warning Chennai", recs[0]["title"])
	assert.Equal(t, "/r/chennai/comments/abc/flood/", recs[0]["permalink"])
	assert.Equal(t, post.PlatformReddit, r.Platform())

	sort.Strings(paths)
	assert.Equal(t, []string{"/r/chennai/search.json", "/r/kolkata/search.json", "/r/mumbai/search.json"}, paths)
}

func TestReddit_GlobalSearchWithoutSubreddits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("restrict_sr"))
		_, _ = w.Write([]byte(redditListingJSON))
	}))
	defer srv.Close()

	recs, err := NewReddit(RedditConfig{Keywords: []string{"tsunami"}, BaseURL: srv.URL}, testFetcher(0), nil).
		Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestReddit_RequiresKeywords(t *testing.T) {
	_, err := NewReddit(RedditConfig{}, testFetcher(0), nil).Collect(context.Background())
	require.Error(t, err)
}
