package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyanli0808/husky/internal/logger"
)

func newTestClient(baseURL string, maxRetries int) *llmClient {
	return &llmClient{
		log:         logger.NewNop(),
		baseURL:     baseURL,
		apiKey:      "test-key",
		model:       "deepseek-chat",
		embedModel:  "text-embedding-3-small",
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		maxRetries:  maxRetries,
		baseBackoff: time.Millisecond,
	}
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func TestCompleteJSONParsesObject(t *testing.T) {
	srv := chatServer(t, `{"points":[{"function_name":"login"}]}`)
	defer srv.Close()

	obj, err := newTestClient(srv.URL, 0).CompleteJSON(context.Background(), "prompt", KeyPoints)
	require.NoError(t, err)
	points, ok := obj[KeyPoints].([]any)
	require.True(t, ok)
	assert.Len(t, points, 1)
}

func TestCompleteJSONMissingRequiredKeyIsMalformed(t *testing.T) {
	srv := chatServer(t, `{"wrong_key":[]}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).CompleteJSON(context.Background(), "prompt", KeyPoints)
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, KeyPoints)
}

func TestCompleteJSONNonJSONPayloadIsMalformed(t *testing.T) {
	srv := chatServer(t, `sure, here are your points:`)
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).CompleteJSON(context.Background(), "prompt", KeyPoints)
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestCompleteJSONServerErrorIsProviderErrorAndRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).CompleteJSON(context.Background(), "prompt", KeyPoints)
	var provider *ProviderError
	require.ErrorAs(t, err, &provider)
	assert.Equal(t, http.StatusBadGateway, provider.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCompleteJSONRetrySucceedsAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try again", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"chunks":[]}`}},
			},
		})
	}))
	defer srv.Close()

	obj, err := newTestClient(srv.URL, 3).CompleteJSON(context.Background(), "prompt", KeyChunks)
	require.NoError(t, err)
	assert.Contains(t, obj, KeyChunks)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCompleteJSONBadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).CompleteJSON(context.Background(), "prompt", KeyChunks)
	var provider *ProviderError
	require.ErrorAs(t, err, &provider)
	assert.EqualValues(t, 1, calls.Load())
}

func TestEmbedReordersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0, 1}},
				{"index": 0, "embedding": []float64{1, 0}},
			},
		})
	}))
	defer srv.Close()

	vectors, err := newTestClient(srv.URL, 0).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestEmbedMissingVectorIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float64{1, 0}},
			},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).Embed(context.Background(), []string{"a", "b"})
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestNewLLMClientRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	_, err := NewLLMClient(logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}
