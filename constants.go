package smartobjects

import "time"

// Version is the SDK version, sent in the User-Agent header.
const Version = "1.4.0"

// API paths
const (
	// Datalake definition endpoints
	DatasetsPath = "/api/v1/definition/streaming/datasets"
	FieldsPath   = "fields"

	// Datalake ingestion endpoint
	IngestionPath = "/api/v3/ingestion/datasets"

	// OAuth2 token endpoint, relative to the base URL
	TokenPath = "/oauth/token"
)

// HTTP headers and content types
const (
	ContentTypeJSON  = "application/json"
	AuthHeaderPrefix = "Bearer "
	HeaderRequestID  = "X-Request-Id"
	EncodingGzip     = "gzip"
	UserAgentPrefix  = "smartobjects-go-sdk/"
)

// Default values
const (
	DefaultTimeout             = 30 * time.Second
	DefaultNumberOfAttempts    = 5
	DefaultInitialBackoffDelay = 500 * time.Millisecond
	DefaultRateLimitBurst      = 10
	DefaultServiceName         = "smartobjects-go-sdk"
)

// Validation limits
const (
	MaxKeyLength                = 64
	MaxDisplayNameLength        = 255
	MaxFieldDescriptionLength   = 1024
	MaxDatasetDescriptionLength = 512
	MaxIngestionRows            = 5000
)

// Error messages
const (
	ErrMsgDatasetKeyEmpty      = "datasetKey cannot be null or empty"
	ErrMsgDatasetKeyTooLong    = "datasetKey cannot be longer than 64 characters"
	ErrMsgDatasetKeyCharset    = "datasetKey can only contain a-z, A-Z, 0-9, _ and -"
	ErrMsgDatasetKeyReserved   = "datasetKey cannot start with a reserved value"
	ErrMsgFieldKeyEmpty        = "fieldKey cannot be null or empty"
	ErrMsgFieldKeyTooLong      = "fieldKey cannot be longer than 64 characters"
	ErrMsgFieldKeyCharset      = "fieldKey can only contain a-z, A-Z, 0-9 and _"
	ErrMsgFieldKeyReserved     = "fieldKey cannot start with x_*"
	ErrMsgDisplayNameTooLong   = "displayName cannot be longer than 255 characters"
	ErrMsgFieldDescTooLong     = "description cannot be longer than 1024 characters"
	ErrMsgDatasetDescTooLong   = "description cannot be longer than 512 characters"
	ErrMsgTooManyRows          = "rows count cannot be greater than 5000"
	ErrMsgRequestNil           = "request cannot be null"
	ErrMsgFieldNil             = "field cannot be null"
	ErrMsgFailedToGetAuthToken = "failed to get auth token"
	ErrMsgUnknownHighLevelType = "unknown high level type"
	ErrMsgFieldTypeRequired    = "field type is required"
	ErrMsgUnsupportedValueKind = "unsupported value type"
)

// Reserved dataset key prefixes, compared case-insensitively.
var ReservedDatasetKeyPrefixes = []string{
	"x_", "p_", "sa_", "da_", "ada_",
	"owner", "object", "event", "session",
	"parametrizeddatasets", "scoring", "_suggested", "analyzed",
}

// Default OAuth2 scopes
var DefaultOAuthScopes = []string{"ALL"}
