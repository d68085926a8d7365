package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the service configuration. Priority: ENV > .env (loaded by main) > defaults.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"local"`
	LogLevel    string `env:"LOG_LEVEL"   env-default:"info"`
	Port        int    `env:"PORT"        env-default:"8080"`

	LLM   LLMConfig
	Store StoreConfig
	NATS  NATSConfig

	// DatasetPath is an optional XLSX workbook of transcripts for batch runs.
	DatasetPath string `env:"DATASET_PATH"`
}

// LLMConfig configures the chat-completion backend used for summaries.
type LLMConfig struct {
	BaseURL     string        `env:"GROQ_API_URL"      env-default:"https://api.groq.com/openai/v1/chat/completions"`
	Model       string        `env:"GROQ_MODEL"        env-default:"llama-3.1-8b-instant"`
	APIKey      string        `env:"GROQ_API_KEY"`
	APIKeyFile  string        `env:"GROQ_API_KEY_FILE"`
	Temperature float64       `env:"LLM_TEMPERATURE"   env-default:"0"`
	Timeout     time.Duration `env:"LLM_TIMEOUT"       env-default:"30s"`
	MaxRetries  int           `env:"LLM_MAX_RETRIES"   env-default:"0"`
	UseMock     bool          `env:"USE_MOCK_LLM"      env-default:"false"`
}

type StoreConfig struct {
	RecordsPath string `env:"RECORDS_PATH" env-default:"call_analysis.csv"`
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL     string `env:"NATS_URL"`
	Token   string `env:"NATS_TOKEN"`
	Subject string `env:"NATS_SUBJECT" env-default:"calls.analyzed"`
}

var ErrMissingAPIKey = errors.New("GROQ_API_KEY (or GROQ_API_KEY_FILE) is required")

// Load reads the environment, resolves the API key secret and validates.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("config: secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// resolveSecrets prefers an inline key; otherwise reads the mounted secret file.
func (c *Config) resolveSecrets() error {
	if c.LLM.APIKey != "" || c.LLM.APIKeyFile == "" {
		return nil
	}
	b, err := os.ReadFile(c.LLM.APIKeyFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.LLM.APIKeyFile, err)
	}
	c.LLM.APIKey = strings.TrimSpace(string(b))
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature %v out of range [0,2]", c.LLM.Temperature))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm timeout must be positive"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm max retries must be >= 0"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm model is required"))
	}
	if c.Store.RecordsPath == "" {
		errs = append(errs, errors.New("records path is required"))
	}
	if !c.LLM.UseMock && c.LLM.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	return errors.Join(errs...)
}
