package smartobjects

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
)

// recordedRequest is what a test server saw
type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type recordingServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newRecordingServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int)) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.requests = append(rs.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		n := len(rs.requests)
		rs.mu.Unlock()
		handler(w, r, n)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) recorded() []recordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]recordedRequest(nil), rs.requests...)
}

func testTransportConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Retry:   RetryConfig{NumberOfAttempts: 2, InitialBackoffDelay: time.Millisecond},
		Logger:  logging.Nop(),
	}
}

func newTestTransport(t *testing.T, cfg *Config, auth tokenProvider) *HTTPTransport {
	t.Helper()
	transport, err := NewHTTPTransport(cfg, auth)
	require.NoError(t, err)
	transport.retry.jitter = func() time.Duration { return 0 }
	return transport
}

func TestNewHTTPTransportValidation(t *testing.T) {
	_, err := NewHTTPTransport(nil, nil)
	assert.Error(t, err)

	_, err = NewHTTPTransport(&Config{}, nil)
	assert.True(t, IsValidationError(err))
}

func TestHTTPTransportSendWithBodyHeaders(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), &mockTokenProvider{token: "abc"})

	raw, err := transport.SendWithBody(context.Background(), http.MethodPost, DatasetsPath, []byte(`{"datasetKey":"k"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, raw)

	reqs := server.recorded()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, DatasetsPath, req.Path)
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
	assert.Equal(t, ContentTypeJSON, req.Header.Get("Content-Type"))
	assert.Equal(t, ContentTypeJSON, req.Header.Get("Accept"))
	assert.Equal(t, UserAgentPrefix+Version, req.Header.Get("User-Agent"))
	assert.Empty(t, req.Header.Get("Content-Encoding"))
	assert.Equal(t, `{"datasetKey":"k"}`, string(req.Body))

	_, err = uuid.Parse(req.Header.Get(HeaderRequestID))
	assert.NoError(t, err)
}

func TestHTTPTransportSendWithoutBody(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		_, _ = w.Write([]byte(`[]`))
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), nil)

	raw, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)

	req := server.recorded()[0]
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, req.Body)
}

func TestHTTPTransportEmptySuccessBody(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusNoContent)
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), nil)

	raw, err := transport.Send(context.Background(), http.MethodDelete, DatasetsPath+"/k")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestHTTPTransportCompressesRequests(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusOK)
	})
	cfg := testTransportConfig(server.URL)
	cfg.Compression = true
	transport := newTestTransport(t, cfg, nil)

	payload := bytes.Repeat([]byte(`{"speed":88.5},`), 100)
	_, err := transport.SendWithBody(context.Background(), http.MethodPost, IngestionPath+"/k", payload)
	require.NoError(t, err)

	req := server.recorded()[0]
	assert.Equal(t, EncodingGzip, req.Header.Get("Content-Encoding"))
	assert.Less(t, len(req.Body), len(payload))

	zr, err := gzip.NewReader(bytes.NewReader(req.Body))
	require.NoError(t, err)
	inflated, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, inflated)
}

func TestHTTPTransportDecodesGzipResponses(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.Header().Set("Content-Encoding", EncodingGzip)
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(`{"key":"vehicles"}`))
		_ = zw.Close()
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), nil)

	raw, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath+"/vehicles")
	require.NoError(t, err)
	assert.Equal(t, `{"key":"vehicles"}`, raw)
	assert.Equal(t, EncodingGzip, server.recorded()[0].Header.Get("Accept-Encoding"))
}

func TestHTTPTransportNon2xxIsAPIError(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`dataset already exists`))
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), nil)

	_, err := transport.SendWithBody(context.Background(), http.MethodPost, DatasetsPath, []byte(`{}`))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "dataset already exists", apiErr.Body)
	assert.Equal(t, http.MethodPost, apiErr.Method)
	assert.Equal(t, DatasetsPath, apiErr.Path)
	// 409 is not retried
	assert.Len(t, server.recorded(), 1)
}

func TestHTTPTransportRetriesServiceUnavailable(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), nil)

	raw, err := transport.SendWithBody(context.Background(), http.MethodPost, IngestionPath+"/k", []byte(`[{"a":1}]`))
	require.NoError(t, err)
	assert.Equal(t, "ok", raw)

	reqs := server.recorded()
	require.Len(t, reqs, 3)
	for _, req := range reqs {
		// every attempt resends the full body and keeps the request id
		assert.Equal(t, `[{"a":1}]`, string(req.Body))
		assert.Equal(t, reqs[0].Header.Get(HeaderRequestID), req.Header.Get(HeaderRequestID))
	}
}

func TestHTTPTransportRetriesExhausted(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`down for maintenance`))
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), nil)

	_, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "down for maintenance", apiErr.Body)
	// one call plus two retries
	assert.Len(t, server.recorded(), 3)
}

func TestHTTPTransportRetryOff(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	cfg := testTransportConfig(server.URL)
	cfg.Retry = RetryOff()
	transport := newTestTransport(t, cfg, nil)

	_, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Len(t, server.recorded(), 1)
}

func TestHTTPTransportNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	transport := newTestTransport(t, testTransportConfig(baseURL), nil)

	_, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsAPIError(err))
}

func TestHTTPTransportAuthenticationError(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusOK)
	})
	transport := newTestTransport(t, testTransportConfig(server.URL), &mockTokenProvider{err: errors.New("token endpoint down")})

	_, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
	assert.False(t, IsTransportError(err))
	assert.Empty(t, server.recorded())
}

// invalidatingProvider records cache invalidations
type invalidatingProvider struct {
	mockTokenProvider
	invalidated atomic.Int32
}

func (p *invalidatingProvider) invalidate() { p.invalidated.Add(1) }

func TestHTTPTransportUnauthorizedInvalidatesToken(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	provider := &invalidatingProvider{mockTokenProvider: mockTokenProvider{token: "stale"}}
	transport := newTestTransport(t, testTransportConfig(server.URL), provider)

	_, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, int32(1), provider.invalidated.Load())
}

func TestHTTPTransportCanceledContext(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	cfg := testTransportConfig(server.URL)
	cfg.Retry = RetryConfig{NumberOfAttempts: 5, InitialBackoffDelay: time.Hour}
	transport := newTestTransport(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := transport.Send(ctx, http.MethodGet, DatasetsPath)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPTransportRateLimited(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusOK)
	})
	cfg := testTransportConfig(server.URL)
	cfg.RateLimit = &RateLimitConfig{RequestsPerSecond: 20, Burst: 1}
	transport := newTestTransport(t, cfg, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestHTTPTransportUsesProvidedClient(t *testing.T) {
	var used atomic.Bool
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusOK)
	})
	cfg := testTransportConfig(server.URL)
	cfg.HTTPClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used.Store(true)
		return http.DefaultTransport.RoundTrip(r)
	})}
	transport := newTestTransport(t, cfg, nil)

	_, err := transport.Send(context.Background(), http.MethodGet, DatasetsPath)
	require.NoError(t, err)
	assert.True(t, used.Load())
	// the caller's client is copied, not modified
	assert.Zero(t, cfg.HTTPClient.Timeout)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
