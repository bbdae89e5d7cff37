package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/chative-salesdesk/server/internal/agent/model"
	"github.com/chative-salesdesk/server/internal/core"
	pkgredis "github.com/chative-salesdesk/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agents is the configured roster, "id|name|handle,id|name|handle".
	Agents model.Roster `envconfig:"AGENTS"`

	// Groups below carry their full variable names and are processed one by one.
	Redis        pkgredis.Config            `ignored:"true"`
	Store        model.StoreConfig          `ignored:"true"`
	Server       model.ServerConfig         `ignored:"true"`
	Catalog      model.CatalogConfig        `ignored:"true"`
	Search       model.SearchConfig         `ignored:"true"`
	Classifier   model.ClassifierConfig     `ignored:"true"`
	Conversation model.ConversationConfig   `ignored:"true"`
	Response     model.ResponseModelConfig  `ignored:"true"`
	Prompt       model.ResponsePromptConfig `ignored:"true"`
	Retry        model.RetryConfig          `ignored:"true"`
}

// LoadConfig reads envFile when it exists and binds the environment into AppConfig.
func LoadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg AppConfig
	groups := []struct {
		prefix string
		target any
	}{
		{"", &cfg},
		{"redis", &cfg.Redis},
		{"", &cfg.Store},
		{"", &cfg.Server},
		{"", &cfg.Catalog},
		{"", &cfg.Search},
		{"", &cfg.Classifier},
		{"", &cfg.Conversation},
		{"", &cfg.Response},
		{"", &cfg.Prompt},
		{"", &cfg.Retry},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.target); err != nil {
			return nil, fmt.Errorf("process environment config: %w", err)
		}
	}
	return &cfg, nil
}
