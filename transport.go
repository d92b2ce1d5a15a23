package smartobjects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
)

// Transport sends one logical request to the platform and returns the raw
// response body. Implementations own retries, authentication and status
// mapping; a non-2xx final response is reported as an *APIError.
type Transport interface {
	Send(ctx context.Context, method, path string) (string, error)
	SendWithBody(ctx context.Context, method, path string, body []byte) (string, error)
}

// HTTPTransport is the default Transport, backed by net/http.
type HTTPTransport struct {
	baseURL     string
	client      *http.Client
	auth        tokenProvider
	retry       *RetryPolicy
	limiter     *RateLimiter
	compression bool
	logger      *logging.Logger
	telemetry   *sdkInstruments
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport builds a transport from cfg. Only BaseURL is required;
// credentials are supplied through auth, which may be nil for anonymous
// calls. Spans and metrics go to the global OpenTelemetry providers.
func NewHTTPTransport(cfg *Config, auth tokenProvider) (*HTTPTransport, error) {
	return newHTTPTransport(cfg, auth, nil)
}

func newHTTPTransport(cfg *Config, auth tokenProvider, tel *telemetryProvider) (*HTTPTransport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	c := *cfg
	c.SetDefaults()
	if c.BaseURL == "" {
		return nil, NewValidationError("Config.BaseURL", "Config.BaseURL is required", c.BaseURL)
	}

	rateLimit := RateLimitConfig{}
	if c.RateLimit != nil {
		rateLimit = *c.RateLimit
	}

	return &HTTPTransport{
		baseURL:     c.BaseURL,
		client:      instrumentedClient(c.HTTPClient, c.Timeout, tel),
		auth:        auth,
		retry:       NewRetryPolicy(c.Retry, c.Logger),
		limiter:     NewRateLimiter(rateLimit, c.Logger),
		compression: c.Compression,
		logger:      c.Logger.With("component", "transport"),
		telemetry:   tel.instruments(),
	}, nil
}

// instrumentedClient copies base and wraps its round tripper with otelhttp.
func instrumentedClient(base *http.Client, timeout time.Duration, tel *telemetryProvider) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	if client.Timeout == 0 {
		client.Timeout = timeout
	}
	rt := client.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	client.Transport = tel.wrapRoundTripper(rt)
	return client
}

// Send issues a request without a body.
func (t *HTTPTransport) Send(ctx context.Context, method, path string) (string, error) {
	return t.do(ctx, method, path, nil)
}

// SendWithBody issues a request carrying a JSON body.
func (t *HTTPTransport) SendWithBody(ctx context.Context, method, path string, body []byte) (string, error) {
	if body == nil {
		body = []byte{}
	}
	return t.do(ctx, method, path, body)
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body []byte) (_ string, err error) {
	requestID := uuid.NewString()

	ctx, span := t.telemetry.startSpan(ctx, "SDK.HTTP "+method,
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.String("request.id", requestID),
	)
	start := time.Now()
	status := 0
	defer func() {
		t.telemetry.recordRequest(ctx, method, status, time.Since(start), err)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		endSDKSpan(span, err)
	}()

	payload, encoding, err := t.encodeBody(body)
	if err != nil {
		return "", err
	}

	attempt := 0
	resp, err := t.retry.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		attempt++
		if attempt > 1 {
			t.telemetry.recordRetry(ctx, method, status)
		}
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := t.newRequest(ctx, method, path, payload, encoding, requestID)
		if err != nil {
			return nil, err
		}
		resp, err := t.client.Do(req)
		if resp != nil {
			status = resp.StatusCode
		}
		return resp, err
	})
	if err != nil {
		if IsAuthenticationError(err) {
			return "", err
		}
		t.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return "", NewTransportError(method, path, err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return "", NewTransportError(method, path, err)
	}

	t.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"attempts", attempt,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := t.auth.(interface{ invalidate() }); ok {
			inv.invalidate()
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", NewAPIError(resp.StatusCode, method, path, string(raw))
	}
	return string(raw), nil
}

// encodeBody compresses the payload when compression is enabled. A nil body
// stays nil.
func (t *HTTPTransport) encodeBody(body []byte) ([]byte, string, error) {
	if body == nil || !t.compression {
		return body, "", nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, "", NewSerializationError("encode", "gzip request body", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", NewSerializationError("encode", "gzip request body", err)
	}
	return buf.Bytes(), EncodingGzip, nil
}

// newRequest builds a fresh request for one attempt.
func (t *HTTPTransport) newRequest(ctx context.Context, method, path string, payload []byte, encoding, requestID string) (*http.Request, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	header, err := authorizationHeader(ctx, t.auth)
	if err != nil {
		return nil, err
	}
	if header != "" {
		req.Header.Set("Authorization", header)
	}

	req.Header.Set("Accept", ContentTypeJSON)
	req.Header.Set("Accept-Encoding", EncodingGzip)
	req.Header.Set("User-Agent", UserAgentPrefix+Version)
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", ContentTypeJSON)
	}
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	return req, nil
}

// readBody reads the whole response, inflating gzip payloads. Setting
// Accept-Encoding ourselves disables net/http's transparent decompression.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == EncodingGzip {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			// empty bodies are sent with the header by some proxies
			if errors.Is(err, io.EOF) {
				return []byte{}, nil
			}
			return nil, fmt.Errorf("failed to open gzip response: %w", err)
		}
		defer zr.Close()
		reader = zr
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return raw, nil
}
