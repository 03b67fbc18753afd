package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/valentinpelus/birdwatch/internal/metrics"
)

func TestInstrument(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	h := Instrument("/slack/events", m, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/slack/events", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/slack/events", "POST", "401")))
}

func TestInstrument_ImplicitOKAndFlush(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	h := Instrument("/health", m, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
		w.(http.Flusher).Flush()
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, rec.Flushed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/health", "GET", "200")))
}
