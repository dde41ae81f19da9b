package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakefetcher/internal/blockfrost"
	"stakefetcher/internal/config"
	"stakefetcher/internal/coordinator"
	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/ratelimit"
	"stakefetcher/internal/stake"
	"stakefetcher/internal/testutil"
)

const testProjectID = "mainnetTestProject"

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		BlockfrostProjectID: testProjectID,
		BlockfrostBaseURL:   baseURL,
		RequestTimeout:      5 * time.Second,
		Workers:             2,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// newPipeline builds the same stack as run, delivering into a recording view.
func newPipeline(t *testing.T, baseURL string) (*coordinator.Coordinator, *testutil.RecordingView) {
	t.Helper()

	httpClient := fetcher.NewHTTPClient(baseURL, testProjectID, 5*time.Second)
	t.Cleanup(func() { httpClient.Close() })

	limiter := ratelimit.New()
	limiter.Set(ratelimit.APIBlockfrost, 0, 1)

	view := testutil.NewRecordingView()
	coord := coordinator.New(
		blockfrost.NewAggregator(blockfrost.NewClient(httpClient, limiter)),
		view,
		coordinator.WithWorkers(4),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return coord, view
}

func waitCall(t *testing.T, view *testutil.RecordingView, op string) testutil.ViewCall {
	t.Helper()
	for {
		select {
		case c := <-view.C:
			if c.Op == op {
				return c
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", op)
		}
	}
}

// TestIntegration_OneShot runs the reference scenario through run with --key.
func TestIntegration_OneShot(t *testing.T) {
	key := testutil.Key("oneshot")
	server := testutil.NewBlockfrostServer(testutil.ScenarioRoutes(key.String()))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Key = key.String()

	var out bytes.Buffer
	code := run(context.Background(), cfg, strings.NewReader(""), &out)
	require.Equal(t, 0, code)

	text := out.String()
	assert.Contains(t, text, key.String())
	assert.Contains(t, text, "300")
	assert.Contains(t, text, "Pool ABC")
	assert.Contains(t, text, "ABC")
	assert.Contains(t, text, "₳50")
	assert.Contains(t, text, "₳6 (12.00%)")
	assert.Contains(t, text, "epoch 299: ₳6")

	assert.Equal(t, 4, server.TotalHits())
	for _, id := range server.ProjectIDs() {
		assert.Equal(t, testProjectID, id)
	}
}

func TestIntegration_OneShotFailure(t *testing.T) {
	key := testutil.Key("unknown")
	routes := testutil.ScenarioRoutes(key.String())
	delete(routes, "/accounts/"+key.String())
	server := testutil.NewBlockfrostServer(routes)
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Key = key.String()

	var out bytes.Buffer
	code := run(context.Background(), cfg, strings.NewReader(""), &out)

	assert.Equal(t, 1, code)
	assert.NotContains(t, out.String(), "Pool ABC")
	assert.Zero(t, server.Hits("/pools/pool1xyz/metadata"))
}

func TestIntegration_OneShotIncompleteKey(t *testing.T) {
	server := testutil.NewBlockfrostServer(nil)
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Key = "stake1short"

	code := run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})

	assert.Equal(t, 1, code)
	assert.Zero(t, server.TotalHits())
}

// TestIntegration_InputLines feeds key edits on stdin and exits once the
// last fetch has settled.
func TestIntegration_InputLines(t *testing.T) {
	key := testutil.Key("lines")
	server := testutil.NewBlockfrostServer(testutil.ScenarioRoutes(key.String()))
	defer server.Close()

	input := strings.Join([]string{
		"stake1",
		"stake1u9",
		key.String(),
	}, "\n") + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	code := run(ctx, testConfig(server.URL), strings.NewReader(input), &out)

	require.Equal(t, 0, code)
	require.NoError(t, ctx.Err(), "run should return before the deadline")
	assert.Contains(t, out.String(), "Pool ABC")
	assert.Equal(t, 1, server.Hits("/epochs/latest"))
}

// TestIntegration_Supersession checks that only the latest key is shown when
// an earlier fetch is still on the wire.
func TestIntegration_Supersession(t *testing.T) {
	keyA := testutil.Key("aaaa")
	keyB := testutil.Key("bbbb")

	routes := testutil.ScenarioRoutes(keyA.String())
	for path, r := range testutil.ScenarioRoutes(keyB.String()) {
		routes[path] = r
	}
	gate := make(chan struct{})
	slow := routes["/accounts/"+keyA.String()]
	slow.Gate = gate
	routes["/accounts/"+keyA.String()] = slow

	server := testutil.NewBlockfrostServer(routes)
	defer server.Close()
	defer close(gate)

	coord, view := newPipeline(t, server.URL)

	coord.OnKeyChanged(keyA.String())
	require.Eventually(t, func() bool {
		return server.Hits("/accounts/"+keyA.String()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	coord.OnKeyChanged(keyB.String())

	rendered := waitCall(t, view, "render")
	assert.Equal(t, keyB, rendered.Snapshot.Key)
	assert.Equal(t, []stake.Key{keyB}, view.Rendered())

	// A's remaining steps are never requested.
	assert.Zero(t, server.Hits("/accounts/"+keyA.String()+"/rewards"))
	assert.False(t, view.Overlapped())

	require.Eventually(t, func() bool {
		current, last := coord.State()
		return current == coordinator.PhaseIdle && last == coordinator.PhasePublished
	}, 5*time.Second, 10*time.Millisecond)
}

// TestIntegration_FailureThenRecovery shows a failure for one key and then
// a full snapshot for the next.
func TestIntegration_FailureThenRecovery(t *testing.T) {
	bad := testutil.Key("bad0")
	good := testutil.Key("good")

	routes := testutil.ScenarioRoutes(good.String())
	routes["/accounts/"+bad.String()] = testutil.Route{
		Status: http.StatusInternalServerError,
		Body:   `{"status_code":500,"error":"Internal Server Error","message":"boom"}`,
	}
	server := testutil.NewBlockfrostServer(routes)
	defer server.Close()

	coord, view := newPipeline(t, server.URL)

	coord.OnKeyChanged(bad.String())
	failed := waitCall(t, view, "failed")
	assert.Equal(t, bad, failed.Key)
	assert.Equal(t, fetcher.ErrorTypeHTTP, fetcher.KindOf(failed.Err))
	assert.Equal(t, 1, server.Hits("/accounts/"+bad.String()), "no retries")

	coord.OnKeyChanged(good.String())
	rendered := waitCall(t, view, "render")
	assert.Equal(t, good, rendered.Snapshot.Key)
	assert.Equal(t, "ABC", rendered.Snapshot.Pool.Ticker)

	stats := coord.Stats()
	assert.Equal(t, uint64(2), stats.Accepted)
	assert.Equal(t, uint64(1), stats.Failed)
}

// TestIntegration_RapidEdits simulates typing a key character by character.
func TestIntegration_RapidEdits(t *testing.T) {
	key := testutil.Key("typed")
	server := testutil.NewBlockfrostServer(testutil.ScenarioRoutes(key.String()))
	defer server.Close()

	coord, view := newPipeline(t, server.URL)

	text := key.String()
	for i := 1; i <= len(text); i++ {
		coord.OnKeyChanged(text[:i])
	}

	rendered := waitCall(t, view, "render")
	assert.Equal(t, key, rendered.Snapshot.Key)
	assert.Equal(t, 1, server.Hits("/epochs/latest"))
	assert.LessOrEqual(t, server.MaxInFlight(), 1)
}
