package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/transbench/internal/translator"
)

func result(id string, ok bool) translator.Result {
	r := translator.NewResult(translator.Descriptor{ID: id, DisplayName: id})
	if ok {
		r.Succeed("x")
	} else {
		r.Fail(errors.New("boom"))
	}
	r.Latency = 150 * time.Millisecond
	return r
}

func TestStats_RecordConcurrent(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Record(result("marian", i%2 == 0))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(50), s.Translations())
	assert.Equal(t, 25.0, testutil.ToFloat64(s.translations.WithLabelValues("marian", "success")))
	assert.Equal(t, 25.0, testutil.ToFloat64(s.translations.WithLabelValues("marian", "failed")))
}

func TestStats_Readiness(t *testing.T) {
	s := New()
	state := translator.NotLoaded
	require.NoError(t, s.TrackReadiness("google", func() translator.InitState { return state }))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `transbench_backend_ready{backend="google"} 0`)

	state = translator.Ready
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `transbench_backend_ready{backend="google"} 1`)

	assert.Error(t, s.TrackReadiness("google", func() translator.InitState { return state }))
}

func TestStats_Uptime(t *testing.T) {
	s := New()
	s.Record(result("m2m100", true))

	assert.Greater(t, s.Uptime(), time.Duration(0))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "transbench_translation_latency_seconds_bucket"))
}
