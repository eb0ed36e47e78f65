// Package config provides application-wide configuration. Values come from
// built-in defaults, then an optional YAML file named by RAGTOOL_CONFIG, then
// environment variables. All fields have safe defaults so the binary runs
// locally without any setup.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for ragtool.
type Config struct {
	// LLM
	Provider      string        `yaml:"provider"`      // RAGTOOL_PROVIDER, default "ollama"
	Model         string        `yaml:"model"`         // RAGTOOL_MODEL, default "mistral"
	Credential    string        `yaml:"credential"`    // RAGTOOL_CREDENTIAL
	VendorTimeout time.Duration `yaml:"vendorTimeout"` // RAGTOOL_VENDOR_TIMEOUT, default 60s

	OllamaBaseURL     string `yaml:"ollamaBaseURL"`     // OLLAMA_BASE_URL, default "http://localhost:11434"
	OpenAIBaseURL     string `yaml:"openAIBaseURL"`     // OPENAI_BASE_URL
	AnthropicBaseURL  string `yaml:"anthropicBaseURL"`  // ANTHROPIC_BASE_URL
	PerplexityBaseURL string `yaml:"perplexityBaseURL"` // PERPLEXITY_BASE_URL

	// Analysis
	FullAnalysis    bool          `yaml:"fullAnalysis"`    // RAGTOOL_FULL_ANALYSIS, default false
	MaxConcurrency  int           `yaml:"maxConcurrency"`  // RAGTOOL_MAX_CONCURRENCY, default 4
	ChunkMaxWords   int           `yaml:"chunkMaxWords"`   // RAGTOOL_CHUNK_MAX_WORDS, default 600
	ChunkTimeout    time.Duration `yaml:"chunkTimeout"`    // RAGTOOL_CHUNK_TIMEOUT, default 0 (none)
	StopJoinPerTask time.Duration `yaml:"stopJoinPerTask"` // RAGTOOL_STOP_JOIN_PER_TASK, default 1s

	// Server
	Host       string `yaml:"host"`       // RAGTOOL_HOST, default "0.0.0.0"
	Port       int    `yaml:"port"`       // RAGTOOL_PORT, default 7860
	DBPath     string `yaml:"dbPath"`     // RAGTOOL_DB_PATH, default "./data/ragtool.db"
	AuthSecret string `yaml:"authSecret"` // RAGTOOL_AUTH_SECRET: empty disables auth

	// Logging
	LogFile  string `yaml:"logFile"`  // RAGTOOL_LOG_FILE: empty logs to stderr only
	LogLevel string `yaml:"logLevel"` // RAGTOOL_LOG_LEVEL, default "info"
}

const (
	envKeyConfigFile        = "RAGTOOL_CONFIG"
	envKeyProvider          = "RAGTOOL_PROVIDER"
	envKeyModel             = "RAGTOOL_MODEL"
	envKeyCredential        = "RAGTOOL_CREDENTIAL"
	envKeyVendorTimeout     = "RAGTOOL_VENDOR_TIMEOUT"
	envKeyOllamaBaseURL     = "OLLAMA_BASE_URL"
	envKeyOpenAIBaseURL     = "OPENAI_BASE_URL"
	envKeyAnthropicBaseURL  = "ANTHROPIC_BASE_URL"
	envKeyPerplexityBaseURL = "PERPLEXITY_BASE_URL"
	envKeyFullAnalysis      = "RAGTOOL_FULL_ANALYSIS"
	envKeyMaxConcurrency    = "RAGTOOL_MAX_CONCURRENCY"
	envKeyChunkMaxWords     = "RAGTOOL_CHUNK_MAX_WORDS"
	envKeyChunkTimeout      = "RAGTOOL_CHUNK_TIMEOUT"
	envKeyStopJoinPerTask   = "RAGTOOL_STOP_JOIN_PER_TASK"
	envKeyHost              = "RAGTOOL_HOST"
	envKeyPort              = "RAGTOOL_PORT"
	envKeyDBPath            = "RAGTOOL_DB_PATH"
	envKeyAuthSecret        = "RAGTOOL_AUTH_SECRET"
	envKeyLogFile           = "RAGTOOL_LOG_FILE"
	envKeyLogLevel          = "RAGTOOL_LOG_LEVEL"
)

var knownProviders = []string{"ollama", "openai", "anthropic", "perplexity"}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Provider:          "ollama",
		Model:             "mistral",
		VendorTimeout:     60 * time.Second,
		OllamaBaseURL:     "http://localhost:11434",
		OpenAIBaseURL:     "https://api.openai.com",
		AnthropicBaseURL:  "https://api.anthropic.com",
		PerplexityBaseURL: "https://api.perplexity.ai",
		MaxConcurrency:    4,
		ChunkMaxWords:     600,
		StopJoinPerTask:   time.Second,
		Host:              "0.0.0.0",
		Port:              7860,
		DBPath:            "./data/ragtool.db",
		LogLevel:          "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// environment variables, in that order, and validates the result.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv(envKeyConfigFile); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.overlayEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlayFile decodes the YAML file at path over cfg. Keys absent from the
// file keep their current value.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() error {
	c.Provider = strings.ToLower(envOr(envKeyProvider, c.Provider))
	c.Model = envOr(envKeyModel, c.Model)
	c.Credential = envOr(envKeyCredential, c.Credential)
	c.OllamaBaseURL = envOr(envKeyOllamaBaseURL, c.OllamaBaseURL)
	c.OpenAIBaseURL = envOr(envKeyOpenAIBaseURL, c.OpenAIBaseURL)
	c.AnthropicBaseURL = envOr(envKeyAnthropicBaseURL, c.AnthropicBaseURL)
	c.PerplexityBaseURL = envOr(envKeyPerplexityBaseURL, c.PerplexityBaseURL)
	c.Host = envOr(envKeyHost, c.Host)
	c.DBPath = envOr(envKeyDBPath, c.DBPath)
	c.AuthSecret = envOr(envKeyAuthSecret, c.AuthSecret)
	c.LogFile = envOr(envKeyLogFile, c.LogFile)
	c.LogLevel = envOr(envKeyLogLevel, c.LogLevel)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	collect(envBool(envKeyFullAnalysis, &c.FullAnalysis))
	collect(envInt(envKeyMaxConcurrency, &c.MaxConcurrency))
	collect(envInt(envKeyChunkMaxWords, &c.ChunkMaxWords))
	collect(envInt(envKeyPort, &c.Port))
	collect(envDuration(envKeyChunkTimeout, &c.ChunkTimeout))
	collect(envDuration(envKeyStopJoinPerTask, &c.StopJoinPerTask))
	collect(envDuration(envKeyVendorTimeout, &c.VendorTimeout))
	return errors.Join(errs...)
}

// Validate checks the values the pipeline cannot run without.
func (c Config) Validate() error {
	var errs []error
	if !isKnownProvider(c.Provider) {
		errs = append(errs, fmt.Errorf("config: unknown provider %q (want one of %s)", c.Provider, strings.Join(knownProviders, ", ")))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("config: maxConcurrency must be >= 1, got %d", c.MaxConcurrency))
	}
	if c.ChunkMaxWords < 1 {
		errs = append(errs, fmt.Errorf("config: chunkMaxWords must be >= 1, got %d", c.ChunkMaxWords))
	}
	if c.ChunkTimeout < 0 || c.StopJoinPerTask < 0 || c.VendorTimeout < 0 {
		errs = append(errs, errors.New("config: durations must not be negative"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port out of range: %d", c.Port))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func isKnownProvider(p string) bool {
	for _, k := range knownProviders {
		if p == k {
			return true
		}
	}
	return false
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
