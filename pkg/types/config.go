// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds settings for the generation endpoint.
type AIConfig struct {
	// Provider is the default provider tag: gemini, anthropic, or openai.
	Provider string `json:"provider" yaml:"provider"`

	// GeminiModel, AnthropicModel, and OpenAIModel pick the model per provider.
	GeminiModel    string `json:"gemini_model" yaml:"gemini_model"`
	AnthropicModel string `json:"anthropic_model" yaml:"anthropic_model"`
	OpenAIModel    string `json:"openai_model" yaml:"openai_model"`

	// API keys per provider. A provider without a key is not registered.
	GeminiAPIKey    string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty"`
	OpenAIAPIKey    string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`

	// MaxOutputTokens caps one generation call (default 8192).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`

	// MaxRetries is passed to the SDK clients. The default 0 keeps one
	// round-trip per generation.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// HarvestConfig holds settings for context harvesting.
type HarvestConfig struct {
	// MaxChars is the harvested context budget in characters (default 100000).
	MaxChars int `json:"max_chars" yaml:"max_chars"`

	// Concurrency bounds parallel full-text fetches; 1 keeps them sequential.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// BackendConfig holds settings for reaching the backend collaborator.
type BackendConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the backend endpoint (e.g. "http://localhost:8790/").
	URL string `json:"url" yaml:"url"`

	// MaxRetries bounds retries on HTTP 429 and 503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Listen is the address the serve command binds (default ":8790").
	Listen string `json:"listen" yaml:"listen"`
}

// StoreConfig holds settings for the backend's SQLite store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path"`
}

// BlobBackend identifies where artifacts are stored.
type BlobBackend string

const (
	BlobFilesystem BlobBackend = "filesystem"
	BlobMinio      BlobBackend = "minio"
)

// BlobConfig holds settings for artifact storage.
type BlobConfig struct {
	Backend BlobBackend `json:"backend" yaml:"backend"`

	// Dir is the filesystem root for the filesystem backend.
	Dir string `json:"dir" yaml:"dir"`

	// MinIO connection settings.
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// SyncConfig holds settings for the broadcast channel mirror.
type SyncConfig struct {
	// RedisURL enables mirroring of confirmed events to Redis when set.
	RedisURL string `json:"redis_url" yaml:"redis_url"`

	// ChannelPrefix prefixes mirrored channel names (default "deck-engine:").
	ChannelPrefix string `json:"channel_prefix" yaml:"channel_prefix"`
}

// ExportFormat selects the binary export format of a deck.
type ExportFormat string

const (
	ExportHTML ExportFormat = "html"
	ExportPDF  ExportFormat = "pdf"
)

// ExportConfig holds settings for deck export.
type ExportConfig struct {
	Format ExportFormat `json:"format" yaml:"format"`

	// LogoPath is an optional image drawn on every slide.
	LogoPath string `json:"logo_path" yaml:"logo_path"`
}

// WorkflowConfig holds settings for the outer workflow wrapper.
type WorkflowConfig struct {
	// Timeout aborts a whole operation (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Config groups all component configurations.
type Config struct {
	AI       AIConfig       `json:"ai" yaml:"ai"`
	Harvest  HarvestConfig  `json:"harvest" yaml:"harvest"`
	Backend  BackendConfig  `json:"backend" yaml:"backend"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Blob     BlobConfig     `json:"blob" yaml:"blob"`
	Sync     SyncConfig     `json:"sync" yaml:"sync"`
	Export   ExportConfig   `json:"export" yaml:"export"`
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
}
