package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/hazardradar/pkg/post"
)

func testFetcher(retries int) *Fetcher {
	return NewFetcher(FetcherConfig{
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxRetries:        retries,
		InitialBackoff:    time.Millisecond,
	}, nil)
}

func TestFetcher_RetriesOnTooManyRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher(3).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(3).Get(context.Background(), srv.URL)
	require.Error(t, err)

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testFetcher(2).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestKeywordFilter(t *testing.T) {
	f := NewKeywordFilter([]string{"Cyclone", "flood"}, []string{"cricket"})

	assert.True(t, f.Matches("CYCLONE warning issued"))
	assert.True(t, f.Matches("Flooding in low lying areas"))
	assert.False(t, f.Matches("Sunny day at the beach"))
	assert.False(t, f.Matches("Cyclone of runs in the cricket match"))

	var nilFilter *KeywordFilter
	assert.True(t, nilFilter.Matches("anything"))

	assert.True(t, NewKeywordFilter(nil, nil).Matches("tsunami alert"))
}

func TestDrainAndFetch(t *testing.T) {
	s := streamFunc(func(ctx context.Context, yield func(post.RawRecord) error) error {
		for _, id := range []string{"a", "b"} {
			if err := yield(post.RawRecord{"id": id}); err != nil {
				return err
			}
		}
		return nil
	})

	recs, err := Fetch(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[1]["id"])
}

type streamFunc func(ctx context.Context, yield func(post.RawRecord) error) error

func (f streamFunc) Name() string            { return "test" }
func (f streamFunc) Platform() post.Platform { return post.PlatformYouTube }
func (f streamFunc) Stream(ctx context.Context, yield func(post.RawRecord) error) error {
	return f(ctx, yield)
}
