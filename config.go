package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gamma-omg/profile-mcp/selector"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile         string               `yaml:"log"`
	LogLevel        string               `yaml:"log_level"`
	LogMaxSizeMB    int                  `yaml:"log_max_size_mb"`
	LogMaxBackups   int                  `yaml:"log_max_backups"`
	DocRoot         string               `yaml:"doc_root"`
	SeedPlaceholder bool                 `yaml:"seed_placeholder"`
	ProfileID       string               `yaml:"profile_id"`
	ServerAddr      string               `yaml:"server_addr"`
	APIAddr         string               `yaml:"api_addr"`
	SessionTTLMins  int                  `yaml:"session_ttl_minutes"`
	SystemPrompt    string               `yaml:"system_prompt"`
	Greeting        string               `yaml:"greeting"`
	LLM             LLMConfig            `yaml:"llm"`
	OpenAI          *OpenAIConfig        `yaml:"open_ai"`
	Gemini          *GeminiConfig        `yaml:"gemini"`
	Vocabulary      *selector.Vocabulary `yaml:"vocabulary"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type OpenAIConfig struct {
	Model   string `yaml:"model"`
	ApiKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	Model  string `yaml:"model"`
	ApiKey string `yaml:"api_key"`
}

func defaultConfig() *Config {
	cfg := &Config{
		LogFile:         "profile-mcp.log",
		LogLevel:        "info",
		LogMaxSizeMB:    10,
		LogMaxBackups:   5,
		DocRoot:         "data/person_profile",
		SeedPlaceholder: true,
		ServerAddr:      "localhost:8080",
		APIAddr:         ":8000",
	}
	cfg.LLM.Provider = "openai"
	cfg.LLM.Temperature = 0.7

	return cfg
}

// readConfig loads the YAML file over the defaults. A missing file is not an error.
// API keys left empty are taken from OPENAI_API_KEY / GEMINI_API_KEY, after loading a
// .env file from the working directory when one exists.
func readConfig(cfgPath string) (*Config, error) {
	cfg := defaultConfig()

	cfgFile, err := os.Open(cfgPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("unable to open config file: %w", err)
	default:
		defer cfgFile.Close()
		dec := yaml.NewDecoder(cfgFile)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unable to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if cfg.OpenAI == nil {
			cfg.OpenAI = &OpenAIConfig{Model: "gpt-4o"}
		}
		if cfg.OpenAI.ApiKey == "" {
			cfg.OpenAI.ApiKey = key
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if cfg.Gemini == nil {
			cfg.Gemini = &GeminiConfig{}
		}
		if cfg.Gemini.ApiKey == "" {
			cfg.Gemini.ApiKey = key
		}
	}
}

func (c *Config) validate() error {
	if c.DocRoot == "" {
		return errors.New("doc_root must be set")
	}

	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	return nil
}

func (c *Config) vocabulary() selector.Vocabulary {
	if c.Vocabulary == nil {
		return selector.DefaultVocabulary()
	}

	return *c.Vocabulary
}
