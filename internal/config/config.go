package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. RAGQUERY_OLLAMA_URL.
const EnvPrefix = "RAGQUERY"

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds the ragquery configuration.
type Config struct {
	Ollama      OllamaConfig      `yaml:"ollama"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Qdrant      QdrantConfig      `yaml:"qdrant"`
	Collections CollectionsConfig `yaml:"collections"`
	Search      SearchConfig      `yaml:"search"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts"`
	Health      HealthConfig      `yaml:"health"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// OllamaConfig holds the Ollama embedding service settings.
type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // ollama (default) | openai
}

// OpenAIConfig holds settings for an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL    string `yaml:"base_url" split_words:"true"`
	APIKey     string `yaml:"api_key" split_words:"true"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// QdrantConfig holds vector database settings.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key" split_words:"true"`
}

// CollectionsConfig names the searched collections. An empty Assets disables the asset catalog.
type CollectionsConfig struct {
	Text   string `yaml:"text"`
	Assets string `yaml:"assets"`
}

// SearchConfig holds search settings.
type SearchConfig struct {
	K int `yaml:"k"`
}

// TimeoutsConfig holds per-call timeouts in seconds.
type TimeoutsConfig struct {
	HealthSec    int `yaml:"health_sec" split_words:"true"`
	EmbeddingSec int `yaml:"embedding_sec" split_words:"true"`
	SearchSec    int `yaml:"search_sec" split_words:"true"`
}

// HealthConfig toggles the pre-flight probe.
type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig holds diagnostic log settings.
type LogConfig struct {
	File  string `yaml:"file"`  // default: ragquery.log beside the executable
	Level string `yaml:"level"` // debug, info, warn, error (default: debug)
}

// MetricsConfig holds the optional Prometheus textfile path.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Ollama:      OllamaConfig{URL: "http://localhost:11434", Model: "nomic-embed-text"},
		Embedding:   EmbeddingConfig{Provider: ProviderOllama},
		OpenAI:      OpenAIConfig{BaseURL: "https://api.openai.com/v1", Model: "text-embedding-3-small"},
		Qdrant:      QdrantConfig{URL: "http://localhost:6333"},
		Collections: CollectionsConfig{Text: "nowa_rag_text", Assets: "nowa_asset_catalog"},
		Search:      SearchConfig{K: 6},
		Timeouts:    TimeoutsConfig{HealthSec: 10, EmbeddingSec: 120, SearchSec: 30},
		Health:      HealthConfig{Enabled: true},
		Log:         LogConfig{Level: "debug"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// An empty path skips the file. The result is not validated; callers apply flags first.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyEnv overlays RAGQUERY_* environment variables. Unset variables leave fields untouched.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
// Collections.Assets is left alone: empty means disabled.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Ollama.URL == "" {
		c.Ollama.URL = d.Ollama.URL
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = d.Ollama.Model
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = d.Embedding.Provider
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = d.OpenAI.BaseURL
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = d.OpenAI.Model
	}
	if c.Qdrant.URL == "" {
		c.Qdrant.URL = d.Qdrant.URL
	}
	if c.Timeouts.HealthSec <= 0 {
		c.Timeouts.HealthSec = d.Timeouts.HealthSec
	}
	if c.Timeouts.EmbeddingSec <= 0 {
		c.Timeouts.EmbeddingSec = d.Timeouts.EmbeddingSec
	}
	if c.Timeouts.SearchSec <= 0 {
		c.Timeouts.SearchSec = d.Timeouts.SearchSec
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
		// ok
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOllama, ProviderOpenAI, c.Embedding.Provider)
	}
	if err := validateURL("ollama.url", c.Ollama.URL); err != nil {
		return err
	}
	if err := validateURL("qdrant.url", c.Qdrant.URL); err != nil {
		return err
	}
	if c.Embedding.Provider == ProviderOpenAI {
		if err := validateURL("openai.base_url", c.OpenAI.BaseURL); err != nil {
			return err
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// ok
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}

// Warnings reports settings that are legal but likely wrong.
func (c *Config) Warnings() []string {
	var w []string
	if c.Timeouts.EmbeddingSec < 60 {
		w = append(w, fmt.Sprintf(
			"timeouts.embedding_sec=%d is below 60s; slow models may time out", c.Timeouts.EmbeddingSec))
	}
	if c.Embedding.Provider == ProviderOpenAI && c.OpenAI.APIKey == "" {
		w = append(w, "openai.api_key is empty")
	}
	if c.Collections.Text == "" && c.Collections.Assets == "" {
		w = append(w, "no collections configured")
	}
	return w
}

// SearchCollections returns the searched collections in query order: text first, then assets.
// Empty names are skipped.
func (c *Config) SearchCollections() []string {
	var out []string
	for _, name := range []string{c.Collections.Text, c.Collections.Assets} {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// HealthTimeout returns the liveness probe timeout.
func (c *Config) HealthTimeout() time.Duration {
	return time.Duration(c.Timeouts.HealthSec) * time.Second
}

// EmbeddingTimeout returns the embedding request timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Timeouts.EmbeddingSec) * time.Second
}

// SearchTimeout returns the per-collection search timeout.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Timeouts.SearchSec) * time.Second
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
