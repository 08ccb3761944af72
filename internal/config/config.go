// Package config loads the YAML configuration shared by the API server and
// the admin CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the docassist configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds chunk index settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	Algorithm       string `yaml:"algorithm"`  // HNSW (default) or FLAT
	Dimensions      int    `yaml:"dimensions"` // 0 = dimensions of the default vectorizer
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds document storage settings.
type StorageConfig struct {
	// DocumentsBaseURL prefixes blob names to form document URLs.
	DocumentsBaseURL string `yaml:"documents_base_url"`
	// CitationBaseURL is returned with every answer so clients can link citations.
	CitationBaseURL string `yaml:"citation_base_url"`
}

// IngestionConfig holds ingestion run settings.
type IngestionConfig struct {
	Workers        int    `yaml:"workers"`
	TerminalStatus string `yaml:"terminal_status"` // overwrite (default) or sticky
	TempDir        string `yaml:"temp_dir"`        // empty = os.TempDir()
	MaxChunkChars  int    `yaml:"max_chunk_chars"`
}

// RetrievalConfig holds query settings.
type RetrievalConfig struct {
	// IncludeUnrestricted keeps documents without permissions visible to
	// callers that hold permissions.
	IncludeUnrestricted bool `yaml:"include_unrestricted"`
}

// PromptsConfig overrides the built-in prompt templates. Empty fields keep the defaults.
type PromptsConfig struct {
	QueryRewrite   string `yaml:"query_rewrite"`
	AnswerSystem   string `yaml:"answer_system"`
	AnswerUser     string `yaml:"answer_user"`
	FollowUpSystem string `yaml:"follow_up_system"`
	FollowUpUser   string `yaml:"follow_up_user"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
	// Default names the vectorizer used for ingestion and questions.
	Default       string `yaml:"default"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"` // 0 = keep forever
}

// ProviderConfig holds settings of an OpenAI-compatible API provider.
type ProviderConfig struct {
	APIKey            string       `yaml:"api_key"`
	BaseURL           string       `yaml:"base_url"`
	RequestsPerSecond float64      `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int          `yaml:"burst"`
	BreakerTimeoutSec int          `yaml:"breaker_timeout_sec"`
	Budget            BudgetConfig `yaml:"budget"`
}

// BudgetConfig caps the tokens a provider may consume. Embeddings and chat
// completions against the provider share the budget.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "warn" (default) | "reject"
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// ChatConfig holds chat completion settings.
type ChatConfig struct {
	// Provider names an entry of embedding.providers.
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"` // 0 = provider default
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// .env files are loaded first so their values take part in ${VAR} expansion.
func Load(env string) (Config, error) {
	if err := loadDotEnv(env); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment variables in data and decodes it.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Answers chain up to three completions.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.Name == "" {
		c.Index.Name = "docassist-idx"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.Default == "" && len(c.Embedding.Vectorizers) == 1 {
		for name := range c.Embedding.Vectorizers {
			c.Embedding.Default = name
		}
	}
	if c.Index.Dimensions <= 0 {
		c.Index.Dimensions = c.Embedding.Vectorizers[c.Embedding.Default].Dimensions
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = c.Embedding.Vectorizers[c.Embedding.Default].Provider
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = 0.7
	}
	if c.Ingestion.Workers <= 0 {
		c.Ingestion.Workers = 4
	}
	if c.Ingestion.TerminalStatus == "" {
		c.Ingestion.TerminalStatus = "overwrite"
	}
	for name, p := range c.Embedding.Providers {
		if p.BreakerTimeoutSec <= 0 {
			p.BreakerTimeoutSec = 60
		}
		if p.RequestsPerSecond > 0 && p.Burst <= 0 {
			p.Burst = 1
		}
		c.Embedding.Providers[name] = p
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}

	if len(c.Embedding.Vectorizers) == 0 {
		return fmt.Errorf("embedding.vectorizers is required")
	}
	if _, ok := c.Embedding.Vectorizers[c.Embedding.Default]; !ok {
		return fmt.Errorf("embedding.default %q is not a configured vectorizer", c.Embedding.Default)
	}
	for name, v := range c.Embedding.Vectorizers {
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s.provider %q is not configured", name, v.Provider)
		}
		if v.Model == "" {
			return fmt.Errorf("embedding.vectorizers.%s.model is required", name)
		}
	}
	for name, p := range c.Embedding.Providers {
		if p.RequestsPerSecond < 0 {
			return fmt.Errorf("embedding.providers.%s.requests_per_second must not be negative", name)
		}
		if p.Budget.DailyTokenLimit < 0 || p.Budget.MonthlyTokenLimit < 0 {
			return fmt.Errorf("embedding.providers.%s.budget limits must not be negative", name)
		}
		switch p.Budget.Action {
		case "", "warn", "reject":
		default:
			return fmt.Errorf(
				"embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}
	if c.Index.Dimensions <= 0 {
		return fmt.Errorf("index.dimensions must be positive")
	}
	switch strings.ToUpper(c.Index.Algorithm) {
	case "", "HNSW", "FLAT":
	default:
		return fmt.Errorf("index.algorithm must be \"HNSW\" or \"FLAT\", got %q", c.Index.Algorithm)
	}

	if _, ok := c.Embedding.Providers[c.Chat.Provider]; !ok {
		return fmt.Errorf("chat.provider %q is not configured", c.Chat.Provider)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("chat.model is required")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature must be between 0 and 2, got %v", c.Chat.Temperature)
	}
	if c.Chat.MaxTokens < 0 {
		return fmt.Errorf("chat.max_tokens must not be negative")
	}

	switch c.Ingestion.TerminalStatus {
	case "overwrite", "sticky":
	default:
		return fmt.Errorf(
			"ingestion.terminal_status must be \"overwrite\" or \"sticky\", got %q",
			c.Ingestion.TerminalStatus,
		)
	}
	return nil
}

// loadDotEnv loads .env.{env} and .env from the working directory when present.
// Variables already set in the process environment win.
func loadDotEnv(env string) error {
	for _, name := range []string{".env." + env, ".env"} {
		if !fileExists(name) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
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
