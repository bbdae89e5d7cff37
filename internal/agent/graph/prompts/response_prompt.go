package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/chative-salesdesk/server/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the response system prompt and triggers prompt callbacks.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, catalogContext string) (string, error) {
	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"BusinessType":   config.BusinessType,
		"BusinessName":   config.BusinessName,
		"Currency":       config.Currency,
		"CatalogContext": strings.TrimSpace(catalogContext),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// RenderHandoff fills the {agent} and {business} tokens of the handoff text.
func RenderHandoff(config model.ResponsePromptConfig, agent *model.Agent) string {
	name := "uno de nuestros asesores"
	if agent != nil && strings.TrimSpace(agent.Name) != "" {
		name = agent.Name
	}
	return strings.NewReplacer(
		"{agent}", name,
		"{business}", config.BusinessName,
	).Replace(config.Handoff)
}
