package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("source failed", "source", "reddit")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "source failed", line["msg"])
	assert.Equal(t, "reddit", line["source"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "text").Info("cycle complete", "total", 3)
	assert.Contains(t, buf.String(), "msg=\"cycle complete\" total=3")
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.PostsIngested.WithLabelValues("reddit").Add(2)
	m.DigestsGenerated.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			values[mf.GetName()] += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), values["hazardradar_posts_ingested_total"])
	assert.Equal(t, float64(1), values["hazardradar_digests_generated_total"])

	assert.NotPanics(t, func() {
		NewMetricsForTesting()
		NewMetricsForTesting()
	})
}
