// Package secrets resolves credentials stored in AWS Secrets Manager, so the
// CLI never needs an OAuth client secret in a config file.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Scheme prefixes a secret reference, e.g.
//
//	aws-sm://prod/smartobjects?region=us-east-1&field=client_secret
const Scheme = "aws-sm"

// Ref locates one secret value. Field, when set, selects a string property of
// a JSON secret payload.
type Ref struct {
	SecretID     string
	Region       string
	Endpoint     string
	VersionID    string
	VersionStage string
	Field        string
}

// IsRef reports whether s looks like a secret reference rather than a literal.
func IsRef(s string) bool {
	return strings.HasPrefix(s, Scheme+"://")
}

// ParseRef parses an aws-sm:// reference. The secret id is the host plus path;
// region, endpoint, version_id, version_stage and field are query parameters.
func ParseRef(s string) (Ref, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid secret reference: %w", err)
	}
	if u.Scheme != Scheme {
		return Ref{}, fmt.Errorf("secret reference must use the %s:// scheme", Scheme)
	}

	q := u.Query()
	ref := Ref{
		SecretID:     strings.TrimSuffix(u.Host+u.Path, "/"),
		Region:       q.Get("region"),
		Endpoint:     q.Get("endpoint"),
		VersionID:    q.Get("version_id"),
		VersionStage: q.Get("version_stage"),
		Field:        q.Get("field"),
	}
	if ref.SecretID == "" {
		return Ref{}, fmt.Errorf("secret id is required")
	}
	return ref, nil
}

// Fetcher reads the raw payload of a secret.
type Fetcher interface {
	FetchSecret(ctx context.Context, ref Ref) (string, error)
}

// secretsAPI is the subset of the Secrets Manager client used here.
type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var _ Fetcher = (*AWSSecretsManagerFetcher)(nil)

// AWSSecretsManagerFetcher retrieves secret payloads and caches clients per region/endpoint
type AWSSecretsManagerFetcher struct {
	mu        sync.Mutex
	clients   map[string]secretsAPI
	newClient func(ctx context.Context, region, endpoint string) (secretsAPI, error)
}

func NewAWSSecretsManagerFetcher() *AWSSecretsManagerFetcher {
	return &AWSSecretsManagerFetcher{
		clients:   make(map[string]secretsAPI),
		newClient: newAWSClient,
	}
}

func (f *AWSSecretsManagerFetcher) FetchSecret(ctx context.Context, ref Ref) (string, error) {
	if ref.SecretID == "" {
		return "", fmt.Errorf("secret id is required")
	}
	if ref.Region == "" {
		return "", fmt.Errorf("region is required to read secret %s", ref.SecretID)
	}

	client, err := f.getClient(ctx, ref.Region, ref.Endpoint)
	if err != nil {
		return "", err
	}

	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref.SecretID),
	}
	if ref.VersionID != "" {
		input.VersionId = aws.String(ref.VersionID)
	}
	if ref.VersionStage != "" {
		input.VersionStage = aws.String(ref.VersionStage)
	}

	output, err := client.GetSecretValue(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to fetch secret %s: %w", ref.SecretID, err)
	}

	if output.SecretString != nil {
		return *output.SecretString, nil
	}

	if len(output.SecretBinary) > 0 {
		return string(output.SecretBinary), nil
	}

	return "", fmt.Errorf("secret %s did not return string or binary payload", ref.SecretID)
}

func (f *AWSSecretsManagerFetcher) getClient(ctx context.Context, region, endpoint string) (secretsAPI, error) {
	key := region + "|" + endpoint

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[key]; ok {
		return client, nil
	}

	client, err := f.newClient(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}
	f.clients[key] = client
	return client, nil
}

func newAWSClient(ctx context.Context, region, endpoint string) (secretsAPI, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration for region %s: %w", region, err)
	}

	var opts []func(*secretsmanager.Options)
	if endpoint != "" {
		opts = append(opts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return secretsmanager.NewFromConfig(cfg, opts...), nil
}

// Resolve returns value unchanged unless it is a secret reference, in which
// case the referenced secret (or its JSON field) is fetched.
func Resolve(ctx context.Context, fetcher Fetcher, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	ref, err := ParseRef(value)
	if err != nil {
		return "", err
	}
	payload, err := fetcher.FetchSecret(ctx, ref)
	if err != nil {
		return "", err
	}
	return extractFieldFromJSON(payload, ref.Field)
}

func extractFieldFromJSON(payload, field string) (string, error) {
	if field == "" {
		return payload, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	value, ok := parsed[field]
	if !ok {
		return "", fmt.Errorf("secret JSON does not contain field %q", field)
	}

	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret field %q is not a string value", field)
	}

	return strValue, nil
}
