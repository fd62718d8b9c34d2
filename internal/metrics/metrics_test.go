package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.Verification("valid")
	r.Verification("valid")
	r.Verification("banned")
	r.Activation("ok")
	r.Increment("conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.verifications.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.verifications.WithLabelValues("banned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.activations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.increments.WithLabelValues("conflict")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveHTTP(http.MethodPost, "/api/license/verify", http.StatusOK, 20*time.Millisecond)
	r.Activation("ok")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `licensegate_license_activations_total{outcome="ok"} 1`)
	assert.Contains(t, body, `licensegate_http_request_duration_seconds_count{method="POST",route="/api/license/verify",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.Verification("valid")
		r.Activation("ok")
		r.Increment("ok")
		r.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
