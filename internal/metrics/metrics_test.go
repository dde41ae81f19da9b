package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(fetches.WithLabelValues(ResultPublished))
	RecordFetch(ResultPublished)
	RecordFetch(ResultPublished)
	assert.Equal(t, before+2, testutil.ToFloat64(fetches.WithLabelValues(ResultPublished)))
}

func TestRecordClear(t *testing.T) {
	before := testutil.ToFloat64(clears)
	RecordClear()
	assert.Equal(t, before+1, testutil.ToFloat64(clears))
}

func TestHandler(t *testing.T) {
	RecordFailure("malformed")
	ObserveFetchDuration(0.25)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `stakefetcher_fetch_failures_total{kind="malformed"}`)
	assert.Contains(t, body, "stakefetcher_fetch_duration_seconds_count")
}
