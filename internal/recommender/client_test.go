package recommender

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/finplan/internal/client"
	"github.com/rshade/finplan/internal/engine"
	"github.com/rshade/finplan/internal/logging"
)

type recorded struct {
	outcomes    []string
	transitions []string
}

func (r *recorded) ObserveRecommendation(outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorded) BreakerStateChanged(from, to string) {
	r.transitions = append(r.transitions, from+"->"+to)
}

func sampleRequest() ([]client.Goal, client.Snapshot, engine.FinancialMetrics) {
	goals := []client.Goal{{ID: "g1", Title: "Retirement", TargetAmount: client.N(10000000)}}
	snapshot := client.Snapshot{ID: "c-1", TotalMonthlyIncome: client.N(100000), TotalMonthlyExpenses: client.N(40000)}
	return goals, snapshot, engine.ComputeMetrics(snapshot)
}

func TestClient_Recommend(t *testing.T) {
	var got Request
	var traceHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/recommendations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		traceHeader = r.Header.Get("X-Trace-Id")

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(` {"recommendations":[{"goalId":"g1"}]} `))
	}))
	defer srv.Close()

	rec := &recorded{}
	c := New(Options{BaseURL: srv.URL + "/", Recorder: rec})
	goals, snapshot, metrics := sampleRequest()

	ctx := logging.ContextWithTraceID(context.Background(), "trace-123")
	recs, err := c.Recommend(ctx, goals, snapshot, metrics)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recommendations":[{"goalId":"g1"}]}`, string(recs))

	require.Len(t, got.Goals, 1)
	assert.Equal(t, client.Text("g1"), got.Goals[0].ID)
	assert.Equal(t, client.Text("c-1"), got.Client.ID)
	assert.InDelta(t, 100000, got.Metrics.MonthlyIncome, 0)
	assert.Equal(t, "trace-123", traceHeader)
	assert.Equal(t, []string{"success"}, rec.outcomes)
}

func TestClient_NotConfigured(t *testing.T) {
	goals, snapshot, metrics := sampleRequest()
	_, err := New(Options{}).Recommend(context.Background(), goals, snapshot, metrics)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	goals, snapshot, metrics := sampleRequest()
	_, err := New(Options{BaseURL: srv.URL}).Recommend(context.Background(), goals, snapshot, metrics)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	rec := &recorded{}
	c := New(Options{BaseURL: srv.URL, FailureThreshold: 2, OpenTimeout: time.Hour, Recorder: rec})
	goals, snapshot, metrics := sampleRequest()
	ctx := context.Background()

	for range 2 {
		_, err := c.Recommend(ctx, goals, snapshot, metrics)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.Code)
		assert.Contains(t, statusErr.Error(), "boom")
	}
	assert.Equal(t, "open", c.State())

	_, err := c.Recommend(ctx, goals, snapshot, metrics)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []string{"error", "error", "unavailable"}, rec.outcomes)
	assert.Equal(t, []string{"closed->open"}, rec.transitions)
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, FailureThreshold: 1})
	goals, snapshot, metrics := sampleRequest()
	for range 3 {
		_, err := c.Recommend(context.Background(), goals, snapshot, metrics)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "recommendation service returned HTTP 422", statusErr.Error())
	}
	assert.Equal(t, "closed", c.State())
}

func TestClient_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	goals, snapshot, metrics := sampleRequest()
	_, err := c.Recommend(ctx, goals, snapshot, metrics)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", c.State())
}

func TestIsSuccessful(t *testing.T) {
	assert.True(t, isSuccessful(nil))
	assert.True(t, isSuccessful(&StatusError{Code: http.StatusBadRequest}))
	assert.False(t, isSuccessful(&StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, isSuccessful(&StatusError{Code: http.StatusServiceUnavailable}))
	assert.False(t, isSuccessful(ErrInvalidResponse))
}
