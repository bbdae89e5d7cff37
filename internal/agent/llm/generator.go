package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// ErrEmptyReply is returned when the backend answers with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Generator is the generative-text backend: prompt in, reply out. It may fail transiently.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []model.Message, userMessage string) (string, error)
}

// ChatGenerator adapts an eino chat model to Generator with bounded retries.
type ChatGenerator struct {
	chat    einomodel.BaseChatModel
	name    string
	pricing model.Pricing
	retry   model.RetryConfig
	sleep   func(context.Context, time.Duration) error
}

func NewChatGenerator(chat einomodel.BaseChatModel, modelName string, retry model.RetryConfig) *ChatGenerator {
	return &ChatGenerator{
		chat:    chat,
		name:    modelName,
		pricing: model.ResolvePricing(modelName),
		retry:   retry,
		sleep:   sleepCtx,
	}
}

func (g *ChatGenerator) Generate(ctx context.Context, systemPrompt string, history []model.Message, userMessage string) (string, error) {
	msgs := BuildMessages(systemPrompt, history, userMessage)
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      g.name,
		Type:      "Gemini",
		Component: components.ComponentOfChatModel,
	})

	var reply string
	err := withRetry(ctx, g.retry, g.sleep, func(ctx context.Context) error {
		start := time.Now()
		out, err := g.chat.Generate(ctx, msgs)
		if err != nil {
			return err
		}
		g.logUsage(out, time.Since(start))
		reply = strings.TrimSpace(out.Content)
		if reply == "" {
			return ErrEmptyReply
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("model", g.name).Msg("response generation failed")
		return "", err
	}
	return reply, nil
}

func (g *ChatGenerator) logUsage(out *schema.Message, took time.Duration) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	cost := model.ComputeCost(out.ResponseMeta.Usage, g.pricing)
	logx.Info().
		Str("model", g.name).
		Int("prompt_tokens", cost.PromptTokens).
		Int("completion_tokens", cost.CompletionTokens).
		Float64("cost_usd", cost.TotalUSD).
		Dur("took", took).
		Msg("llm usage")
}

// BuildMessages lays out the system prompt, prior turns and the new user message.
// Messages written by human agents are shown to the model as assistant turns.
func BuildMessages(systemPrompt string, history []model.Message, userMessage string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	if systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	for _, m := range history {
		switch m.Role {
		case model.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Text))
		case model.RoleAssistant, model.RoleAgent:
			msgs = append(msgs, schema.AssistantMessage(m.Text, nil))
		}
	}
	return append(msgs, schema.UserMessage(userMessage))
}
