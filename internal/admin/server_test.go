package admin

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/metrics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type poolSet map[string]*executor.Pool

func (s poolSet) Pools() []*executor.Pool {
	pools := make([]*executor.Pool, 0, len(s))
	for _, p := range s {
		pools = append(pools, p)
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].Name() < pools[j].Name() })
	return pools
}

func (s poolSet) Lookup(name string) (*executor.Pool, bool) {
	p, ok := s[name]
	return p, ok
}

func newPools(t *testing.T) poolSet {
	t.Helper()

	worker, err := executor.New("worker", executor.Options{
		MinThreads:  2,
		MaxThreads:  8,
		IdleTimeout: time.Minute,
		QueueSize:   10,
		Overflow:    executor.Abort,
	}, quietLogger())
	require.NoError(t, err)

	inline, err := executor.New("inline", executor.Options{MaxThreads: 0}, quietLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		worker.Shutdown()
		inline.Shutdown()
	})
	return poolSet{"worker": worker, "inline": inline}
}

// newTestServer starts an httptest server and a client pointed at it
func newTestServer(t *testing.T, pools PoolSource, gatherer prometheus.Gatherer) (*httptest.Server, *Client) {
	t.Helper()

	ts := httptest.NewServer(NewServer(pools, gatherer, quietLogger()))
	t.Cleanup(ts.Close)

	client := NewClient(ts.URL, nil, WithRetries(2, time.Millisecond, 5*time.Millisecond))
	return ts, client
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, newPools(t), nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_List(t *testing.T) {
	_, client := newTestServer(t, newPools(t), nil)

	stats, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "inline", stats[0].Name)
	assert.True(t, stats[0].Synchronous)
	assert.Equal(t, "worker", stats[1].Name)
	assert.Equal(t, "abort", stats[1].RejectedHandler)
	assert.Equal(t, time.Minute, stats[1].IdleTimeout)
}

func TestClient_Get(t *testing.T) {
	_, client := newTestServer(t, newPools(t), nil)

	stats, err := client.Get(context.Background(), "worker")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CorePoolSize)
	assert.Equal(t, 8, stats.MaxPoolSize)
	assert.Equal(t, 10, stats.QueueRemainingCapacity)

	_, err = client.Get(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, `pool "missing" not found`)
}

func TestClient_Update(t *testing.T) {
	intp := func(v int) *int { return &v }
	strp := func(v string) *string { return &v }

	tests := []struct {
		name        string
		req         UpdateRequest
		wantStatus  int
		wantCore    int
		wantMax     int
		wantTimeout time.Duration
	}{
		{
			name:        "idle timeout only",
			req:         UpdateRequest{IdleTimeout: strp("90s")},
			wantCore:    2,
			wantMax:     8,
			wantTimeout: 90 * time.Second,
		},
		{
			name:        "grow both beyond current max",
			req:         UpdateRequest{CorePoolSize: intp(10), MaxPoolSize: intp(12)},
			wantCore:    10,
			wantMax:     12,
			wantTimeout: time.Minute,
		},
		{
			name:        "shrink both",
			req:         UpdateRequest{CorePoolSize: intp(1), MaxPoolSize: intp(1)},
			wantCore:    1,
			wantMax:     1,
			wantTimeout: time.Minute,
		},
		{
			name:       "max below core",
			req:        UpdateRequest{MaxPoolSize: intp(1)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed idle timeout",
			req:        UpdateRequest{IdleTimeout: strp("soon")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "core within max but above new max",
			req:        UpdateRequest{CorePoolSize: intp(5), MaxPoolSize: intp(3)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "max grows but stays below new core",
			req:        UpdateRequest{CorePoolSize: intp(10), MaxPoolSize: intp(9)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "valid sizes with non-positive idle timeout",
			req:        UpdateRequest{CorePoolSize: intp(4), MaxPoolSize: intp(6), IdleTimeout: strp("0s")},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, newPools(t), nil)

			stats, err := client.Update(context.Background(), "worker", tt.req)
			if tt.wantStatus != 0 {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantStatus, apiErr.StatusCode)

				unchanged, err := client.Get(context.Background(), "worker")
				require.NoError(t, err)
				assert.Equal(t, 2, unchanged.CorePoolSize, "rejected update must not change core size")
				assert.Equal(t, 8, unchanged.MaxPoolSize, "rejected update must not change max size")
				assert.Equal(t, time.Minute, unchanged.IdleTimeout)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCore, stats.CorePoolSize)
			assert.Equal(t, tt.wantMax, stats.MaxPoolSize)
			assert.Equal(t, tt.wantTimeout, stats.IdleTimeout)
		})
	}
}

func TestClient_UpdateSynchronousPool(t *testing.T) {
	_, client := newTestServer(t, newPools(t), nil)

	size := 4
	_, err := client.Update(context.Background(), "inline", UpdateRequest{MaxPoolSize: &size})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "runs tasks synchronously")
}

func TestServer_PutMalformedBody(t *testing.T) {
	ts, _ := newTestServer(t, newPools(t), nil)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/debug/pools/worker", strings.NewReader("{not json"))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServer_Metrics(t *testing.T) {
	pools := newPools(t)
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewPoolCollector("", pools["worker"]))

	ts, _ := newTestServer(t, pools, reg)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `taskpool_pool_max_size{pool="worker"} 8`)
}

func TestServer_NoMetricsWithoutGatherer(t *testing.T) {
	ts, _ := newTestServer(t, newPools(t), nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"name":"worker","max_pool_size":4}]`)
	}))
	defer ts.Close()

	client := NewClient(strings.TrimPrefix(ts.URL, "http://"), nil, WithRetries(3, time.Millisecond, 5*time.Millisecond))

	stats, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 4, stats[0].MaxPoolSize)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "overloaded")
	}))
	defer ts.Close()

	client := NewClient(ts.URL, nil, WithRetries(1, time.Millisecond, time.Millisecond))

	_, err := client.Get(context.Background(), "worker")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "overloaded", apiErr.Message)
}

func TestServer_ServeStopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(newPools(t), nil, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := NewClient(ln.Addr().String(), nil, WithRetries(5, 5*time.Millisecond, 20*time.Millisecond))
	_, err = client.List(context.Background())
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
