package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	smartobjects "github.com/mnubo/Mnubo.SmartObjects.Client-sub001"
	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/secrets"
)

// EnvPrefix prefixes every environment override, e.g. SMARTOBJECTS_BASE_URL
// or SMARTOBJECTS_OAUTH_CLIENT_SECRET.
const EnvPrefix = "SMARTOBJECTS"

// Settings holds the CLI configuration
type Settings struct {
	BaseURL     string            `mapstructure:"base_url"`
	AccessToken string            `mapstructure:"access_token"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Compression bool              `mapstructure:"compression"`
	Output      string            `mapstructure:"output"` // json, yaml, table
	OAuth       OAuthSettings     `mapstructure:"oauth"`
	Retry       RetrySettings     `mapstructure:"retry"`
	RateLimit   RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry   TelemetrySettings `mapstructure:"telemetry"`
	Logging     LoggingSettings   `mapstructure:"logging"`
}

// OAuthSettings holds client credentials. ClientSecret may be an
// aws-sm:// reference resolved through AWS Secrets Manager.
type OAuthSettings struct {
	TokenURL     string   `mapstructure:"token_url"`
	IssuerURL    string   `mapstructure:"issuer_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type RetrySettings struct {
	Enabled      bool          `mapstructure:"enabled"`
	Attempts     int           `mapstructure:"attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

type RateLimitSettings struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type TelemetrySettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// LoadSettings reads configuration with the following precedence:
// 1. Command-line flags bound to v (highest priority)
// 2. Environment variables
// 3. Config file
// 4. Default values (lowest priority)
func LoadSettings(v *viper.Viper, configPath string) (*Settings, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("smartobjects")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.smartobjects")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &s, nil
}

// setDefaults registers every key, which also makes AutomaticEnv see them
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://rest.sandbox.mnubo.com")
	v.SetDefault("access_token", "")
	v.SetDefault("timeout", smartobjects.DefaultTimeout)
	v.SetDefault("compression", false)
	v.SetDefault("output", "table")

	v.SetDefault("oauth.token_url", "")
	v.SetDefault("oauth.issuer_url", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.scopes", smartobjects.DefaultOAuthScopes)

	v.SetDefault("retry.enabled", true)
	v.SetDefault("retry.attempts", smartobjects.DefaultNumberOfAttempts)
	v.SetDefault("retry.initial_delay", smartobjects.DefaultInitialBackoffDelay)

	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", smartobjects.DefaultRateLimitBurst)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", true)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
}

// SDKConfig converts the settings into an SDK configuration. An OAuth client
// secret given as a secret reference is fetched with fetcher.
func (s *Settings) SDKConfig(ctx context.Context, fetcher secrets.Fetcher, logger *logging.Logger) (*smartobjects.Config, error) {
	cfg := &smartobjects.Config{
		BaseURL:     s.BaseURL,
		AccessToken: s.AccessToken,
		Timeout:     s.Timeout,
		Compression: s.Compression,
		Logger:      logger,
	}

	// attempts counts retries after the first call; zero means none
	if s.Retry.Enabled && s.Retry.Attempts > 0 {
		cfg.Retry = smartobjects.RetryConfig{
			NumberOfAttempts:    s.Retry.Attempts,
			InitialBackoffDelay: s.Retry.InitialDelay,
		}
	} else {
		cfg.Retry = smartobjects.RetryOff()
	}

	// a static token wins over client credentials
	if s.AccessToken == "" && s.OAuth.ClientID != "" {
		secret, err := secrets.Resolve(ctx, fetcher, s.OAuth.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve client secret: %w", err)
		}
		cfg.OAuth = &smartobjects.OAuthConfig{
			TokenURL:     s.OAuth.TokenURL,
			IssuerURL:    s.OAuth.IssuerURL,
			ClientID:     s.OAuth.ClientID,
			ClientSecret: secret,
			Scopes:       s.OAuth.Scopes,
		}
	}

	if s.RateLimit.RequestsPerSecond > 0 {
		cfg.RateLimit = &smartobjects.RateLimitConfig{
			RequestsPerSecond: s.RateLimit.RequestsPerSecond,
			Burst:             s.RateLimit.Burst,
		}
	}

	if s.Telemetry.Enabled {
		cfg.Telemetry = &smartobjects.TelemetryConfig{
			Enabled:     true,
			ServiceName: "smartobjects-cli",
			Endpoint:    s.Telemetry.Endpoint,
			Insecure:    s.Telemetry.Insecure,
		}
	}

	return cfg, nil
}
