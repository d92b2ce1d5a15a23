package smartobjects

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
)

// Client is the main SmartObjects SDK client that provides access to all services.
type Client struct {
	config *Config

	// Service clients
	Datalake *DatalakeClient

	// Authentication
	auth      tokenProvider
	transport *HTTPTransport
	telemetry *telemetryProvider
	logger    *logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a new SmartObjects SDK client with the given configuration.
//
// With OAuth credentials and an IssuerURL, the token endpoint is discovered
// here; the first token is requested lazily by the first call.
//
// Example:
//
//	client, err := smartobjects.NewClient(&smartobjects.Config{
//	    BaseURL:     "https://rest.sandbox.mnubo.com",
//	    AccessToken: os.Getenv("SMARTOBJECTS_TOKEN"),
//	    Retry:       smartobjects.RetryOff(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Set defaults and validate
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := &Client{
		config: config,
		logger: config.Logger.With("component", "client"),
	}

	ctx, cancel := config.contextWithTimeout(context.Background())
	defer cancel()

	telemetry, err := enableTelemetry(ctx, config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	client.telemetry = telemetry

	if config.OAuth != nil {
		auth, err := newAuthManager(ctx, config.OAuth, config.BaseURL, config.HTTPClient)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to initialize authentication: %w", err)
		}
		client.auth = auth
	} else {
		client.auth = newStaticTokenProvider(config.AccessToken)
	}

	transport, err := newHTTPTransport(config, client.auth, telemetry)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize transport: %w", err)
	}
	client.transport = transport
	client.Datalake = NewDatalakeClient(transport, NewDatasetValidator())

	client.logger.Debug("client created",
		"base_url", config.BaseURL,
		"oauth", config.OAuth != nil,
		"retry", !config.Retry.Disabled,
		"telemetry", telemetry != nil,
	)

	return client, nil
}

// Close releases the client's resources and flushes telemetry.
// It is safe to call Close multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	ctx, cancel := c.config.contextWithTimeout(context.Background())
	defer cancel()

	if err := c.telemetry.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down telemetry: %w", err)
	}
	return nil
}

// IsClosed returns true if the client has been closed.
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// GetToken returns the access token the next request will carry.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	return c.auth.GetToken(ctx)
}

// RefreshToken forces a new OAuth2 grant.
// Returns an error if the client uses a static access token.
func (c *Client) RefreshToken(ctx context.Context) error {
	am, ok := c.auth.(*authManager)
	if !ok {
		return fmt.Errorf("token refresh requires OAuth credentials")
	}
	return am.RefreshToken(ctx)
}

// CollectMetrics returns the request, error and retry metrics recorded since
// telemetry was enabled. It fails when telemetry is disabled.
func (c *Client) CollectMetrics(ctx context.Context) (*metricdata.ResourceMetrics, error) {
	if c.telemetry == nil {
		return nil, fmt.Errorf("telemetry is not enabled")
	}
	rm := &metricdata.ResourceMetrics{}
	if err := c.telemetry.reader.Collect(ctx, rm); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}
	return rm, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *Config {
	return c.config
}
