package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// GeminiConfig holds what is needed to reach the Gemini API.
type GeminiConfig struct {
	APIKey   string
	BaseURL  string
	Response model.ResponseModelConfig
}

// NewGeminiChatModel creates the response chat model.
func NewGeminiChatModel(ctx context.Context, cfg GeminiConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	temperature := cfg.Response.Temperature
	maxTokens := cfg.Response.MaxTokens
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Response.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}
	return chat, nil
}

// NewGeminiGenerator wires the Gemini chat model behind the retrying Generator.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, retry model.RetryConfig) (*ChatGenerator, error) {
	chat, err := NewGeminiChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewChatGenerator(chat, cfg.Response.Model, retry), nil
}
