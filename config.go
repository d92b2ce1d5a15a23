// Package smartobjects provides a Go SDK for the SmartObjects IoT platform.
//
// The SDK currently covers the datalake:
//   - Datasets: create, read, update, delete and list streaming datasets
//   - Fields: add and update typed dataset fields
//   - Ingestion: send rows to a dataset
//
// Every HTTP call goes through a retry policy with exponential backoff.
//
// Example usage:
//
//	client, err := smartobjects.NewClient(&smartobjects.Config{
//	    BaseURL: "https://rest.sandbox.mnubo.com",
//	    OAuth: &smartobjects.OAuthConfig{
//	        ClientID:     "my-app",
//	        ClientSecret: "secret",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	dataset, err := client.Datalake.GetDataset(ctx, "vehicles")
package smartobjects

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
)

// Config holds the configuration for the SmartObjects SDK client.
type Config struct {
	// BaseURL of the platform REST API (e.g., "https://rest.sandbox.mnubo.com")
	BaseURL string `validate:"required,url"`

	// Authentication, OAuth2 client credentials or a static access token.
	OAuth       *OAuthConfig
	AccessToken string

	// Connection options
	Timeout     time.Duration    `validate:"gte=0"` // per attempt (default: 30s)
	Retry       RetryConfig      // default: 5 retries on 503, 500ms initial backoff
	Compression bool             // gzip request bodies
	RateLimit   *RateLimitConfig // client-side throttling, off when nil
	Telemetry   *TelemetryConfig

	// Advanced options
	HTTPClient *http.Client    `validate:"-"` // base client, otelhttp instrumentation is added on top
	Logger     *logging.Logger `validate:"-"` // default: logging.Global()
}

// OAuthConfig holds OAuth2 client credentials. The token endpoint is TokenURL
// when set, discovered from IssuerURL when set, and BaseURL + "/oauth/token"
// otherwise.
type OAuthConfig struct {
	TokenURL     string   `validate:"omitempty,url"`
	IssuerURL    string   `validate:"omitempty,url"`
	ClientID     string   `validate:"required"`
	ClientSecret string   `validate:"required"`
	Scopes       []string // default: ["ALL"]
}

var (
	configValidator     *validator.Validate
	configValidatorOnce sync.Once
)

func getConfigValidator() *validator.Validate {
	configValidatorOnce.Do(func() {
		configValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return configValidator
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := getConfigValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return NewValidationError(fe.Namespace(), describeFieldError(fe), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.OAuth == nil && c.AccessToken == "" {
		return NewValidationError("Config.OAuth", "either OAuth credentials or an access token must be configured", nil)
	}
	if c.OAuth != nil && c.AccessToken != "" {
		return NewValidationError("Config.AccessToken", "OAuth credentials and an access token are mutually exclusive", nil)
	}
	if c.OAuth != nil && c.OAuth.TokenURL != "" && c.OAuth.IssuerURL != "" {
		return NewValidationError("Config.OAuth.IssuerURL", "token URL and issuer URL are mutually exclusive", c.OAuth.IssuerURL)
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL", fe.Namespace())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q check", fe.Namespace(), fe.Tag())
	}
}

// SetDefaults sets default values for unspecified configuration options.
func (c *Config) SetDefaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	c.Retry.SetDefaults()
	if c.OAuth != nil && len(c.OAuth.Scopes) == 0 {
		c.OAuth.Scopes = DefaultOAuthScopes
	}
	if c.RateLimit != nil && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = DefaultRateLimitBurst
	}
	if c.Telemetry != nil && c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
	if c.Logger == nil {
		c.Logger = logging.Global()
	}
}

// contextWithTimeout bounds a single attempt with the configured timeout.
func (c *Config) contextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}
