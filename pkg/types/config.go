package types

import "errors"

// Config holds backend selection and runtime parameters.
type Config struct {
	Backend         string       `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir         string       `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	QuotaBytes      int64        `json:"quota_bytes" yaml:"quota_bytes" mapstructure:"quota_bytes"`
	Locale          string       `json:"locale" yaml:"locale" mapstructure:"locale"`
	SearchThreshold float64      `json:"search_threshold" yaml:"search_threshold" mapstructure:"search_threshold"`
	Remote          RemoteConfig `json:"remote" yaml:"remote" mapstructure:"remote"`
	Assets          AssetsConfig `json:"assets" yaml:"assets" mapstructure:"assets"`
	Vision          VisionConfig `json:"vision" yaml:"vision" mapstructure:"vision"`
	Log             LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// RemoteConfig selects and parameterizes the sync transport.
type RemoteConfig struct {
	Kind      string `json:"kind" yaml:"kind" mapstructure:"kind"` // webdav or s3
	URL       string `json:"url" yaml:"url" mapstructure:"url"`
	Username  string `json:"username" yaml:"username" mapstructure:"username"`
	Password  string `json:"password" yaml:"password" mapstructure:"password"`
	Bucket    string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`
	Resource  string `json:"resource" yaml:"resource" mapstructure:"resource"`
	TimeoutMS int    `json:"timeout_ms" yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// AssetsConfig parameterizes the S3-compatible asset host.
type AssetsConfig struct {
	Endpoint   string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey  string `json:"access_key" yaml:"access_key" mapstructure:"access_key"`
	SecretKey  string `json:"secret_key" yaml:"secret_key" mapstructure:"secret_key"`
	Bucket     string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	UseSSL     bool   `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`
	PublicBase string `json:"public_base" yaml:"public_base" mapstructure:"public_base"`
}

// VisionConfig parameterizes the image analysis collaborator.
type VisionConfig struct {
	APIKey string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Model  string `json:"model" yaml:"model" mapstructure:"model"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Supported remote kinds.
const (
	RemoteWebDAV = "webdav"
	RemoteS3     = "s3"
)

// DefaultRemoteResource is the name of the single remote snapshot file.
const DefaultRemoteResource = "meme-manager-sync.json"

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrQuotaInvalid        = errors.New("quota must not be negative")
	ErrThresholdInvalid    = errors.New("search threshold must be within [0, 1]")
	ErrRemoteKindUnknown   = errors.New("unknown remote kind")
	ErrRemoteURLMissing    = errors.New("remote url must not be empty")
	ErrRemoteBucketMissing = errors.New("remote bucket must not be empty")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.QuotaBytes < 0 {
		return ErrQuotaInvalid
	}
	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		return ErrThresholdInvalid
	}
	return nil
}

// Enabled reports whether a remote is configured at all.
func (r RemoteConfig) Enabled() bool {
	return r.URL != ""
}

// Validate checks the remote configuration for the selected kind.
func (r RemoteConfig) Validate() error {
	switch r.Kind {
	case RemoteWebDAV, "":
		if r.URL == "" {
			return ErrRemoteURLMissing
		}
	case RemoteS3:
		if r.URL == "" {
			return ErrRemoteURLMissing
		}
		if r.Bucket == "" {
			return ErrRemoteBucketMissing
		}
	default:
		return ErrRemoteKindUnknown
	}
	return nil
}

// ResourceName returns the remote file name, falling back to the default.
func (r RemoteConfig) ResourceName() string {
	if r.Resource == "" {
		return DefaultRemoteResource
	}
	return r.Resource
}
