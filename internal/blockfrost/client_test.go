package blockfrost

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/ratelimit"
	"stakefetcher/internal/testutil"
)

func newTestClient(baseURL string) *Client {
	return NewClient(fetcher.NewHTTPClient(baseURL, "test_project", 2*time.Second), nil)
}

func TestClient_Get_SendsProjectID(t *testing.T) {
	server := testutil.NewBlockfrostServer(map[string]testutil.Route{
		"/epochs/latest": {Body: `{"epoch": 300}`},
	})
	defer server.Close()

	var result EpochResponse
	err := newTestClient(server.URL).Get(context.Background(), pathLatestEpoch, nil, &result)
	require.NoError(t, err)
	require.NotNil(t, result.Epoch)
	assert.Equal(t, int64(300), *result.Epoch)
	assert.Equal(t, []string{"test_project"}, server.ProjectIDs())
}

func TestClient_Get_SubstitutesPathParams(t *testing.T) {
	server := testutil.NewBlockfrostServer(map[string]testutil.Route{
		"/pools/pool1abc/metadata": {Body: `{"ticker":"T","name":"N"}`},
	})
	defer server.Close()

	var result PoolMetadataResponse
	err := newTestClient(server.URL).Get(context.Background(), pathPoolMetadata, map[string]string{"pool_id": "pool1abc"}, &result)
	require.NoError(t, err)
	assert.Equal(t, 1, server.Hits("/pools/pool1abc/metadata"))
}

func TestClient_Get_HTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"forbidden", http.StatusForbidden},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewBlockfrostServer(map[string]testutil.Route{
				"/epochs/latest": {Status: tt.status, Body: `{"error":"boom"}`},
			})
			defer server.Close()

			var result EpochResponse
			err := newTestClient(server.URL).Get(context.Background(), pathLatestEpoch, nil, &result)
			require.Error(t, err)

			var fe *fetcher.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, fetcher.ErrorTypeHTTP, fe.Type)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, 1, server.Hits("/epochs/latest"), "no retries expected")
		})
	}
}

func TestClient_Get_NetworkError(t *testing.T) {
	server := testutil.NewBlockfrostServer(nil)
	url := server.URL
	server.Close()

	var result EpochResponse
	err := newTestClient(url).Get(context.Background(), pathLatestEpoch, nil, &result)
	require.Error(t, err)
	assert.Equal(t, fetcher.ErrorTypeNetwork, fetcher.KindOf(err))
}

func TestClient_Get_ContextCancellation(t *testing.T) {
	gate := make(chan struct{})
	server := testutil.NewBlockfrostServer(map[string]testutil.Route{
		"/epochs/latest": {Body: `{"epoch": 1}`, Gate: gate},
	})
	defer server.Close()
	defer close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var result EpochResponse
	err := newTestClient(server.URL).Get(ctx, pathLatestEpoch, nil, &result)
	require.Error(t, err)
	assert.Equal(t, fetcher.ErrorTypeNetwork, fetcher.KindOf(err))
}

func TestClient_Get_RateLimited(t *testing.T) {
	server := testutil.NewBlockfrostServer(map[string]testutil.Route{
		"/epochs/latest": {Body: `{"epoch": 1}`},
	})
	defer server.Close()

	limiter := ratelimit.New()
	limiter.Set(ratelimit.APIBlockfrost, 0.001, 1)
	client := NewClient(fetcher.NewHTTPClient(server.URL, "p", time.Second), limiter)

	var result EpochResponse
	require.NoError(t, client.Get(context.Background(), pathLatestEpoch, nil, &result))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := client.Get(ctx, pathLatestEpoch, nil, &result)
	require.Error(t, err)
	assert.Equal(t, fetcher.ErrorTypeNetwork, fetcher.KindOf(err))
	assert.Equal(t, 1, server.Hits("/epochs/latest"))
}
