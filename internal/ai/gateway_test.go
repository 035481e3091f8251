package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeModelServer is an OpenAI-compatible chat completions endpoint with a
// scriptable per-request behavior.
type fakeModelServer struct {
	mu      sync.Mutex
	calls   int
	handler func(call int, w http.ResponseWriter, r *http.Request)
	server  *httptest.Server
}

func newFakeModelServer(handler func(call int, w http.ResponseWriter, r *http.Request)) *fakeModelServer {
	f := &fakeModelServer{handler: handler}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls++
		call := f.calls
		f.mu.Unlock()
		f.handler(call, w, r)
	}))
	return f
}

func (f *fakeModelServer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func writeCompletion(w http.ResponseWriter, content string) {
	resp := map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestGateway(baseURL string, maxRetries int) *Gateway {
	return NewGateway(Config{
		BaseURL:        baseURL + "/v1",
		APIKey:         "test",
		Model:          "test-model",
		Timeout:        2 * time.Second,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		CacheSize:      16,
		CacheTTL:       time.Minute,
	}, zap.NewNop())
}

func TestGateway_Generate(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, `{"ok": true}`)
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 0)
	text, err := gw.Generate(context.Background(), GenerateRequest{
		Prompt:       "extract this",
		SystemPrompt: "you are an extractor",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
	assert.Equal(t, 1, srv.callCount())
}

func TestGateway_RetriesTransientFailures(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		if call < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeCompletion(w, "recovered")
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 3)
	text, err := gw.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 3, srv.callCount())
}

func TestGateway_RetryBudgetExhausted(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 2)
	_, err := gw.Generate(context.Background(), GenerateRequest{Prompt: "p"})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindUnavailable, gwErr.Kind)
	assert.Equal(t, 3, srv.callCount(), "initial attempt plus two retries")
}

func TestGateway_TimeoutExhaustsRetryBudget(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	defer srv.server.Close()

	gw := NewGateway(Config{
		BaseURL:        srv.server.URL + "/v1",
		APIKey:         "test",
		Model:          "test-model",
		Timeout:        50 * time.Millisecond,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		CacheSize:      16,
		CacheTTL:       time.Minute,
	}, zap.NewNop())
	_, err := gw.Generate(context.Background(), GenerateRequest{Prompt: "p"})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindTimeout, gwErr.Kind)
	assert.Equal(t, 3, srv.callCount(), "every attempt runs into the per-call timeout")
}

func TestGateway_ClientErrorFailsFast(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "unknown model",
				"type":    "invalid_request_error",
			},
		})
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 3)
	_, err := gw.Generate(context.Background(), GenerateRequest{Prompt: "p"})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindUnavailable, gwErr.Kind)
	assert.Equal(t, 1, srv.callCount(), "a rejected request is not retried")
}

func TestGateway_EndpointDown(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {})
	srv.server.Close()

	gw := newTestGateway(srv.server.URL, 1)
	_, err := gw.Generate(context.Background(), GenerateRequest{Prompt: "p"})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindUnavailable, gwErr.Kind)
}

func TestGateway_EmptyCompletionIsMalformed(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   ")
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 2)
	_, err := gw.Generate(context.Background(), GenerateRequest{Prompt: "p"})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindMalformedResponse, gwErr.Kind)
	assert.Equal(t, 1, srv.callCount(), "a malformed answer is not retried")
}

func TestGateway_CacheHitSkipsTransport(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "cached answer")
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 0)
	req := GenerateRequest{Prompt: "same prompt", SystemPrompt: "same system", Temperature: 0.1}

	first, err := gw.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := gw.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, srv.callCount(), "second request is served from cache")
}

func TestGateway_FailuresAreNotCached(t *testing.T) {
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		if call == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeCompletion(w, "second time lucky")
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 0)
	req := GenerateRequest{Prompt: "p"}

	_, err := gw.Generate(context.Background(), req)
	require.Error(t, err)

	text, err := gw.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", text)
}

func TestGateway_ConcurrentIdenticalRequestsCoalesce(t *testing.T) {
	var inFlight atomic.Int32
	srv := newFakeModelServer(func(call int, w http.ResponseWriter, r *http.Request) {
		inFlight.Add(1)
		defer inFlight.Add(-1)
		time.Sleep(50 * time.Millisecond)
		writeCompletion(w, "shared answer")
	})
	defer srv.server.Close()

	gw := newTestGateway(srv.server.URL, 0)
	req := GenerateRequest{Prompt: "hot prompt"}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, err := gw.Generate(context.Background(), req)
			assert.NoError(t, err)
			results[i] = text
		}(i)
	}
	wg.Wait()

	for _, text := range results {
		assert.Equal(t, "shared answer", text)
	}
	assert.Equal(t, 1, srv.callCount(), "identical in-flight requests share one call")
}

func TestCacheKey(t *testing.T) {
	base := GenerateRequest{Prompt: "p", SystemPrompt: "s", Temperature: 0.1, MaxTokens: 100}

	t.Run("differs by prompt", func(t *testing.T) {
		other := base
		other.Prompt = "q"
		assert.NotEqual(t, cacheKey("m", base), cacheKey("m", other))
	})

	t.Run("differs by model", func(t *testing.T) {
		assert.NotEqual(t, cacheKey("m1", base), cacheKey("m2", base))
	})

	t.Run("differs by temperature", func(t *testing.T) {
		other := base
		other.Temperature = 0.7
		assert.NotEqual(t, cacheKey("m", base), cacheKey("m", other))
	})

	t.Run("max tokens does not affect identity", func(t *testing.T) {
		other := base
		other.MaxTokens = 500
		assert.Equal(t, cacheKey("m", base), cacheKey("m", other))
	})
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	cache := newResponseCache(4, 30*time.Millisecond)
	cache.Add("k", "v")

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	time.Sleep(60 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok, "entry expires after the TTL")
}

func TestResponseCache_SizeBound(t *testing.T) {
	cache := newResponseCache(2, time.Minute)
	cache.Add("a", "1")
	cache.Add("b", "2")
	cache.Add("c", "3")

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry is evicted")
}
