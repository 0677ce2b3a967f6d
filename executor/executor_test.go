package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"benchkit/catalogue"
	"benchkit/metrics"
	"benchkit/workload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRecordsOKObservations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cat := catalogue.NewBuiltin()
	collector := metrics.NewCollector(kindIDs(cat), 4, nil)

	exec := New(Config{BaseURL: server.URL, Concurrency: 4}, collector, nil)

	plans := make(chan workload.RequestPlan)
	go func() {
		defer close(plans)
		kind, _ := cat.Lookup("mode_s")
		for i := 0; i < 20; i++ {
			plans <- workload.RequestPlan{Ordinal: i, Kind: kind, Value: "A00001"}
		}
	}()

	exec.Run(context.Background(), plans)

	snapshot := collector.Snapshot(metrics.SessionMetrics{})
	require.NoError(t, collector.Err())
	assert.Equal(t, int64(20), snapshot.Kinds["mode_s"].OKCount)
	assert.Equal(t, int64(0), snapshot.Kinds["mode_s"].FailedCount())
}

func TestExecutorClassifiesHTTPStatusFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cat := catalogue.NewBuiltin()
	collector := metrics.NewCollector(kindIDs(cat), 2, nil)
	exec := New(Config{BaseURL: server.URL, Concurrency: 2}, collector, nil)

	plans := make(chan workload.RequestPlan, 1)
	kind, _ := cat.Lookup("mode_s")
	plans <- workload.RequestPlan{Ordinal: 0, Kind: kind, Value: "A00001"}
	close(plans)

	exec.Run(context.Background(), plans)

	snapshot := collector.Snapshot(metrics.SessionMetrics{})
	assert.Equal(t, int64(0), snapshot.Kinds["mode_s"].OKCount)
	assert.Equal(t, int64(1), snapshot.Kinds["mode_s"].FailedCounts[metrics.OutcomeHTTPError])
}

func TestExecutorClassifiesTimeouts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cat := catalogue.NewBuiltin()
	collector := metrics.NewCollector(kindIDs(cat), 1, nil)
	exec := New(Config{BaseURL: server.URL, Concurrency: 1, Timeout: 1 * time.Millisecond}, collector, nil)

	plans := make(chan workload.RequestPlan, 1)
	kind, _ := cat.Lookup("mode_s")
	plans <- workload.RequestPlan{Ordinal: 0, Kind: kind, Value: "A00001"}
	close(plans)

	exec.Run(context.Background(), plans)

	snapshot := collector.Snapshot(metrics.SessionMetrics{})
	assert.Equal(t, int64(1), snapshot.Kinds["mode_s"].FailedCounts[metrics.OutcomeTimeout])
}

func TestPreflightSucceedsOnHealthyService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, Preflight(server.URL))
}

func TestPreflightFailsOnUnhealthyService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	assert.Error(t, Preflight(server.URL))
}

func kindIDs(cat *catalogue.Catalogue) []string {
	var ids []string
	for _, k := range cat.Kinds() {
		ids = append(ids, k.ID)
	}
	return ids
}
