package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RetryConfig configures exponential backoff on rate-limited calls.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMS int `yaml:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms,omitempty"`
}

// BaseDelay returns the first backoff step.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff cap, or zero when uncapped.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// LLMConfig selects and configures the generative completion backend.
type LLMConfig struct {
	Provider    string      `yaml:"provider"`
	Model       string      `yaml:"model"`
	BaseURL     string      `yaml:"base_url"`
	APIKeyEnv   string      `yaml:"api_key_env"`
	TimeoutSecs int         `yaml:"timeout_secs"`
	Retry       RetryConfig `yaml:"retry"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects how chunks are vectorised: "tfidf" locally or
// "openai" through an OpenAI-compatible embeddings endpoint.
type EmbedderConfig struct {
	Type        string `yaml:"type"`
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	Model       string `yaml:"model,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// SearchConfig configures relevance search over the uploaded document.
type SearchConfig struct {
	TopK     int            `yaml:"top_k"`
	Index    string         `yaml:"index"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Qdrant   *QdrantConfig  `yaml:"qdrant,omitempty"`
}

type AQICNConfig struct {
	TokenEnv string `yaml:"token_env"`
	BaseURL  string `yaml:"base_url"`
}

type AirlyConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

type GIOSConfig struct {
	BaseURL string `yaml:"base_url"`
}

// RateConfig is a token bucket applied to each provider.
type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BreakerConfig trips a provider's circuit after consecutive failures.
type BreakerConfig struct {
	MaxFailures      int `yaml:"max_failures"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs"`
}

// ProvidersConfig configures the air-quality data sources.
type ProvidersConfig struct {
	Primary     string        `yaml:"primary"`
	AQICN       AQICNConfig   `yaml:"aqicn"`
	Airly       AirlyConfig   `yaml:"airly"`
	GIOS        GIOSConfig    `yaml:"gios"`
	TimeoutSecs int           `yaml:"timeout_secs"`
	Concurrency int           `yaml:"concurrency"`
	Retry       RetryConfig   `yaml:"retry"`
	Rate        RateConfig    `yaml:"rate"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM       LLMConfig       `yaml:"llm"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Search    SearchConfig    `yaml:"search"`
	Providers ProvidersConfig `yaml:"providers"`
	Locale    string          `yaml:"locale"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/airrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/airrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "airrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	switch cfg.LLM.Provider {
	case "gemini":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gemini-1.5-flash"
		}
	case "openai":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.LLM.Retry.MaxRetries == 0 {
		cfg.LLM.Retry.MaxRetries = 3
	}
	if cfg.LLM.Retry.BaseDelayMS == 0 {
		cfg.LLM.Retry.BaseDelayMS = 2000
	}

	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 200
	}

	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 3
	}
	if cfg.Search.Index == "" {
		cfg.Search.Index = "memory"
	}
	if cfg.Search.Embedder.Type == "" {
		cfg.Search.Embedder.Type = "tfidf"
	}
	if cfg.Search.Embedder.Type == "openai" && cfg.Search.Embedder.APIKeyEnv == "" {
		cfg.Search.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Search.Index == "qdrant" {
		if cfg.Search.Qdrant == nil {
			cfg.Search.Qdrant = &QdrantConfig{}
		}
		if cfg.Search.Qdrant.URL == "" {
			cfg.Search.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.Search.Qdrant.Collection == "" {
			cfg.Search.Qdrant.Collection = "airrag_chunks"
		}
	}

	p := &cfg.Providers
	if p.Primary == "" {
		p.Primary = "aqicn"
	}
	if p.AQICN.TokenEnv == "" {
		p.AQICN.TokenEnv = "AQICN_TOKEN"
	}
	if p.AQICN.BaseURL == "" {
		p.AQICN.BaseURL = "https://api.waqi.info"
	}
	if p.Airly.APIKeyEnv == "" {
		p.Airly.APIKeyEnv = "AIRLY_API_KEY"
	}
	if p.Airly.BaseURL == "" {
		p.Airly.BaseURL = "https://airapi.airly.eu/v2"
	}
	if p.GIOS.BaseURL == "" {
		p.GIOS.BaseURL = "https://api.gios.gov.pl/pjp-api/rest"
	}
	if p.TimeoutSecs == 0 {
		p.TimeoutSecs = 15
	}
	if p.Concurrency == 0 {
		p.Concurrency = 4
	}
	if p.Retry.MaxRetries == 0 {
		p.Retry.MaxRetries = 3
	}
	if p.Retry.BaseDelayMS == 0 {
		p.Retry.BaseDelayMS = 1000
	}
	if p.Retry.MaxDelayMS == 0 {
		p.Retry.MaxDelayMS = 10000
	}
	if p.Rate.RPS == 0 {
		p.Rate.RPS = 5
	}
	if p.Rate.Burst == 0 {
		p.Rate.Burst = 5
	}
	if p.Breaker.MaxFailures == 0 {
		p.Breaker.MaxFailures = 5
	}
	if p.Breaker.ResetTimeoutSecs == 0 {
		p.Breaker.ResetTimeoutSecs = 30
	}

	if cfg.Locale == "" {
		cfg.Locale = "pl"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
