package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_recommend/config"
)

func inferenceConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Inference.BaseURL = baseURL
	cfg.Inference.Path = "/api/query"
	cfg.Inference.TimeoutSec = 5
	cfg.Inference.AnswerFields = []string{"answer", "response", "result"}
	cfg.Inference.Breaker.MaxFailures = 3
	cfg.Inference.Breaker.OpenSec = 60
	return cfg
}

func TestInferenceClient_Query(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"answer": "hello", "sources": []string{"a"}})
	}))
	defer server.Close()

	cfg := inferenceConfig(server.URL + "/")
	cfg.Inference.APIKey = "key-1"
	cfg.Inference.Params = map[string]any{"top_k": 4, "question": "overridden"}

	answer, err := NewInferenceClient(cfg).Query(context.Background(), "recommend cards")
	require.NoError(t, err)
	assert.Equal(t, "hello", answer)
	assert.Equal(t, "recommend cards", got["question"])
	assert.Equal(t, float64(4), got["top_k"])
}

func TestInferenceClient_AnswerAliases(t *testing.T) {
	cases := map[string]string{
		`{"response": "from response"}`:                "from response",
		`{"answer": "", "result": "from result"}`:      "from result",
		`{"code": 0, "data": {"answer": "enveloped"}}`: "enveloped",
	}
	for body, want := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		answer, err := NewInferenceClient(inferenceConfig(server.URL)).Query(context.Background(), "q")
		server.Close()

		require.NoError(t, err, body)
		assert.Equal(t, want, answer, body)
	}
}

func TestInferenceClient_StructuredAnswerPassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer": {"summary": "s", "recommendations": []}}`))
	}))
	defer server.Close()

	answer, err := NewInferenceClient(inferenceConfig(server.URL)).Query(context.Background(), "q")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary": "s", "recommendations": []}`, answer)
}

func assertInferenceKind(t *testing.T, err error, kind InferenceErrorKind) {
	t.Helper()
	require.Error(t, err)
	var ie *InferenceError
	require.True(t, errors.As(err, &ie), "expected *InferenceError, got %T", err)
	assert.Equal(t, kind, ie.Kind)
	assert.NotEmpty(t, ie.Error())
}

func TestInferenceClient_NoAnswerField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": "shape"}`))
	}))
	defer server.Close()

	_, err := NewInferenceClient(inferenceConfig(server.URL)).Query(context.Background(), "q")
	assertInferenceKind(t, err, InferenceEmpty)
}

func TestInferenceClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	}))
	defer server.Close()

	_, err := NewInferenceClient(inferenceConfig(server.URL)).Query(context.Background(), "q")
	assertInferenceKind(t, err, InferenceDecode)
}

func TestInferenceClient_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	_, err := NewInferenceClient(inferenceConfig(server.URL)).Query(context.Background(), "q")
	assertInferenceKind(t, err, InferenceStatus)
	var ie *InferenceError
	errors.As(err, &ie)
	assert.Equal(t, http.StatusServiceUnavailable, ie.StatusCode)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestInferenceClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewInferenceClient(inferenceConfig(url)).Query(context.Background(), "q")
	assertInferenceKind(t, err, InferenceNetwork)
}

func TestInferenceClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewInferenceClient(inferenceConfig(server.URL)).Query(ctx, "q")
	assertInferenceKind(t, err, InferenceTimeout)
}

func TestInferenceClient_NoRetryAndBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewInferenceClient(inferenceConfig(server.URL))
	for i := 0; i < 3; i++ {
		_, err := client.Query(context.Background(), "q")
		assertInferenceKind(t, err, InferenceStatus)
	}
	assert.Equal(t, int32(3), hits.Load(), "each query must hit the server exactly once")

	_, err := client.Query(context.Background(), "q")
	assertInferenceKind(t, err, InferenceUnavailable)
	assert.Equal(t, int32(3), hits.Load())
}

func TestInferenceClient_OversizedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer": "` + strings.Repeat("x", 256) + `"}`))
	}))
	defer server.Close()

	client := NewInferenceClient(inferenceConfig(server.URL))
	client.maxReply = 64
	_, err := client.Query(context.Background(), "q")
	assertInferenceKind(t, err, InferenceDecode)
	assert.Contains(t, err.Error(), "exceeds 64 bytes")
}

func TestInferenceClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n%2 == 0 {
			w.Write([]byte(`not json`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewInferenceClient(inferenceConfig(server.URL))
	for i := 0; i < 6; i++ {
		_, err := client.Query(context.Background(), "q")
		var ie *InferenceError
		require.True(t, errors.As(err, &ie))
		assert.NotEqual(t, InferenceUnavailable, ie.Kind)
	}
	assert.Equal(t, int32(6), hits.Load())
}

func TestInferenceClient_CallerDeadlineDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewInferenceClient(inferenceConfig(server.URL))
	for i := 0; i < 4; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		_, err := client.Query(ctx, "q")
		cancel()
		assertInferenceKind(t, err, InferenceTimeout)
	}
	assert.Equal(t, int32(4), hits.Load())
}

func TestTripsBreaker(t *testing.T) {
	assert.True(t, tripsBreaker(&InferenceError{Kind: InferenceNetwork}))
	assert.True(t, tripsBreaker(&InferenceError{Kind: InferenceTimeout}))
	assert.True(t, tripsBreaker(&InferenceError{Kind: InferenceStatus, StatusCode: 502}))
	assert.False(t, tripsBreaker(&InferenceError{Kind: InferenceTimeout, callerSide: true}))
	assert.False(t, tripsBreaker(&InferenceError{Kind: InferenceStatus, StatusCode: 429}))
	assert.False(t, tripsBreaker(&InferenceError{Kind: InferenceDecode}))
	assert.False(t, tripsBreaker(&InferenceError{Kind: InferenceEmpty}))
	assert.False(t, tripsBreaker(errors.New("marshal failed")))
}
