package model

// Config is the complete kgframe configuration
type Config struct {
	Storage      StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Server       ServerConfig    `yaml:"server" mapstructure:"server"`
	LLM          LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Embedding    EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Cache        CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Concurrency  WorkerConfig    `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Import       ImportConfig    `yaml:"import" mapstructure:"import"`
	Log          LogConfig       `yaml:"log" mapstructure:"log"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`                       // ":memory:" for an ephemeral store
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"` // SQLite busy_timeout pragma
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level"` // echo request log level
}

// ProviderConfig holds credentials and models for one LLM provider
type ProviderConfig struct {
	APIKey        string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL       string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Model         string `yaml:"model,omitempty" mapstructure:"model"`
	FallbackModel string `yaml:"fallback_model,omitempty" mapstructure:"fallback_model"` // used once when a rewrite fails
}

// LLMConfig holds provider selection settings
type LLMConfig struct {
	Enabled     bool           `yaml:"enabled" mapstructure:"enabled"` // enhancement is still opt-in per request
	Provider    string         `yaml:"provider" mapstructure:"provider"`     // forced provider, empty means auto
	Preference  []string       `yaml:"preference" mapstructure:"preference"` // auto-selection order
	AllowPaid   bool           `yaml:"allow_paid" mapstructure:"allow_paid"` // openai is only auto-selected when true
	Timeout     int            `yaml:"timeout" mapstructure:"timeout"`       // seconds per request
	MaxTokens   int            `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy   string         `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string         `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string         `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	OpenAI      ProviderConfig `yaml:"openai" mapstructure:"openai"`
	Anthropic   ProviderConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Ollama      ProviderConfig `yaml:"ollama" mapstructure:"ollama"`
	HuggingFace ProviderConfig `yaml:"huggingface" mapstructure:"huggingface"`
}

// EmbeddingConfig selects the vector backend used for similarity and grouping
type EmbeddingConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "ollama", "openai" or empty
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// CacheConfig controls the LLM response cache
type CacheConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir          string `yaml:"dir" mapstructure:"dir"`
	MemoryTTLSec int    `yaml:"memory_ttl_sec" mapstructure:"memory_ttl_sec"`
	DiskTTLSec   int    `yaml:"disk_ttl_sec" mapstructure:"disk_ttl_sec"`
}

// WorkerConfig sizes the worker pools
type WorkerConfig struct {
	LLMWorkers    int `yaml:"llm_workers" mapstructure:"llm_workers"`
	ImportWorkers int `yaml:"import_workers" mapstructure:"import_workers"`
}

// RateLimitConfig throttles outbound LLM requests per provider
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ImportConfig controls document fetching during import
type ImportConfig struct {
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSec    int    `yaml:"timeout_sec" mapstructure:"timeout_sec"`
	MaxBytes      int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// LogConfig controls application logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Path:          "kgframe.db",
			BusyTimeoutMS: 5000,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			LogLevel: "info",
		},
		LLM: LLMConfig{
			Enabled:    true, // false skips backend probing entirely
			Preference: []string{"huggingface", "ollama", "embedding", "openai", "anthropic"},
			Timeout:    30,
			MaxTokens:  1000,
			OpenAI:     ProviderConfig{Model: "gpt-4o-mini"},
			Anthropic:  ProviderConfig{Model: "claude-3-5-haiku-20241022"},
			Ollama:     ProviderConfig{BaseURL: "http://localhost:11434", Model: "llama3.1"},
			HuggingFace: ProviderConfig{
				Model:         "meta-llama/Llama-3.1-8B-Instruct",
				FallbackModel: "google/flan-t5-large",
			},
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		Cache: CacheConfig{
			Enabled:      true,
			Dir:          ".kgframe-cache",
			MemoryTTLSec: 3600,
			DiskTTLSec:   7 * 24 * 3600,
		},
		Concurrency: WorkerConfig{
			LLMWorkers:    4,
			ImportWorkers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Import: ImportConfig{
			UserAgent:     "kgframe/0.1 (+https://github.com/ppiankov/kgframe)",
			TimeoutSec:    30,
			MaxBytes:      20 << 20,
			RespectRobots: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
