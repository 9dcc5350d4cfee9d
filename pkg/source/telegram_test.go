package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channelPage = `<!DOCTYPE html>
<html><body>
<div class="tgme_widget_message" data-post="ChennaiRains/101">
  <a class="tgme_widget_message_from_author">Chennai Rains</a>
  <div class="tgme_widget_message_text">Heavy rain alert for Chennai<br/>  Stay indoors  </div>
  <span class="tgme_widget_message_views">1.2K</span>
  <a class="tgme_widget_message_date" href="https://t.me/ChennaiRains/101"><time datetime="2025-10-20T08:15:00+05:30">08:15</time></a>
</div>
<div class="tgme_widget_message" data-post="ChennaiRains/102">
  <div class="tgme_widget_message_text">Good morning everyone</div>
  <a class="tgme_widget_message_date" href="https://t.me/ChennaiRains/102"><time datetime="2025-10-20T09:00:00+05:30">09:00</time></a>
</div>
<div class="tgme_widget_message" data-post="ChennaiRains/103">
  <div class="tgme_widget_message_text">Cyclone update: landfall expected tonight</div>
</div>
</body></html>`

func channelServer(t *testing.T, page string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s/ChennaiRains", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTelegram_ParsesMessages(t *testing.T) {
	srv := channelServer(t, channelPage)
	tg := NewTelegram(TelegramConfig{Channel: "@ChennaiRains", BaseURL: srv.URL}, testFetcher(0), nil)

	recs, err := tg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	first := recs[0]
	assert.Equal(t, "Heavy rain alert for Chennai\nStay indoors", first["message"])
	assert.Equal(t, "2025-10-20T08:15:00+05:30", first["datetime"])
	assert.Equal(t, "101", first["post_id"])
	assert.Equal(t, "https://t.me/ChennaiRains/101", first["url"])
	assert.Equal(t, "Chennai Rains", first["author"])
	assert.Equal(t, "1.2K", first["views"])
	assert.Equal(t, "ChennaiRains", first["channel"])

	third := recs[2]
	assert.Equal(t, "103", third["post_id"], "falls back to data-post")
	assert.NotContains(t, third, "datetime")
	assert.NotContains(t, third, "author")
}

func TestTelegram_KeywordFilterAndLimit(t *testing.T) {
	srv := channelServer(t, channelPage)
	tg := NewTelegram(TelegramConfig{
		Channel: "ChennaiRains",
		BaseURL: srv.URL,
		Limit:   1,
		Filter:  NewKeywordFilter(nil, nil),
	}, testFetcher(0), nil)

	recs, err := tg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "101", recs[0]["post_id"])

	tg.cfg.Limit = 10
	recs, err = tg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2, "greeting is filtered out")
	assert.Equal(t, "103", recs[1]["post_id"])
}

func TestTelegram_EmptyChannel(t *testing.T) {
	srv := channelServer(t, `<html><body><div class="tgme_channel_history"></div></body></html>`)

	recs, err := NewTelegram(TelegramConfig{Channel: "ChennaiRains", BaseURL: srv.URL}, testFetcher(0), nil).
		Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}
