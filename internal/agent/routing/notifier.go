package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// LogNotifier writes handoff notices to the log. It stands in for the chat transport,
// which is where a deployment delivers the notice to the agent's handle.
type LogNotifier struct{}

func (LogNotifier) NotifyAgent(ctx context.Context, notice model.HandoffNotice) error {
	logx.Info().
		Str("agent_id", notice.Agent.ID).
		Str("agent_handle", notice.Agent.ContactHandle).
		Str("client_id", notice.Client.ID).
		Str("reason", string(notice.Reason)).
		Str("notice", FormatNotice(notice)).
		Msg("handoff notice")
	return nil
}

// FormatNotice renders the text an agent receives when a client is routed to them.
func FormatNotice(n model.HandoffNotice) string {
	var b strings.Builder
	name := n.Client.DisplayName
	if name == "" {
		name = "sin nombre"
	}
	fmt.Fprintf(&b, "Nuevo cliente asignado: %s (%s)\n", name, n.Client.ID)
	fmt.Fprintf(&b, "Motivo: %s\n", reasonLabel(n.Reason))
	if len(n.Recent) > 0 {
		b.WriteString("Ultimos mensajes:\n")
		for _, m := range n.Recent {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Role, m.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func reasonLabel(o model.Outcome) string {
	switch o {
	case model.OutcomeEscalatePurchase:
		return "intencion de compra"
	case model.OutcomeEscalateHumanRequest:
		return "pidio hablar con un asesor"
	default:
		return string(o)
	}
}
