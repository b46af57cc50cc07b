package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/metrics"
	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

type fakeRun struct {
	state scraper.State
	stats scraper.RunStats
}

func (f fakeRun) State() scraper.State    { return f.state }
func (f fakeRun) Stats() scraper.RunStats { return f.stats }

func do(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := do(t, NewServer("recetecom", nil, zap.NewNop()), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzReflectsRunState(t *testing.T) {
	t.Parallel()

	ready := do(t, NewServer("recetecom", fakeRun{state: scraper.StateRunning}, nil), "/readyz")
	assert.Equal(t, http.StatusOK, ready.Code)

	failed := do(t, NewServer("recetecom", fakeRun{state: scraper.StateFailed}, nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, failed.Code)
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	run := fakeRun{state: scraper.StateDone, stats: scraper.RunStats{Categories: 2, ProductURLs: 5, Published: 4, Skipped: 1}}
	rec := do(t, NewServer("recetecom", run, nil), "/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)

	var body runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "recetecom", body.Channel)
	assert.Equal(t, scraper.StateDone, body.State)
	assert.Equal(t, run.stats, body.Stats)

	missing := do(t, NewServer("recetecom", nil, nil), "/v1/run")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics.ObserveListing("recetecom", "published")
	rec := do(t, NewServer("recetecom", nil, nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scraper_listings_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	NewServer("recetecom", nil, nil).Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("recetecom", nil, nil).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
