package nodes

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/chative-salesdesk/server/internal/agent/graph/conversations"
	"github.com/chative-salesdesk/server/internal/agent/graph/prompts"
	"github.com/chative-salesdesk/server/internal/agent/llm"
	"github.com/chative-salesdesk/server/internal/agent/model"
	errx "github.com/chative-salesdesk/server/internal/core/error"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// Classifier decides the outcome of one message.
type Classifier interface {
	Classify(text string, sender model.SenderContext) model.Classification
}

// Searcher ranks the catalog against a raw query. maxResults <= 0 means the default.
type Searcher interface {
	Search(rawQuery string, maxResults int) model.SearchResult
}

// ContextFormatter turns a search result into the catalog section of the prompt.
type ContextFormatter interface {
	Context(res model.SearchResult) string
}

// Assigner hands a client to a human agent.
type Assigner interface {
	Assign(ctx context.Context, clientID string) (*model.Assignment, *model.Agent, error)
}

// NewClassifyNode loads history, classifies the message and records it unless it is
// suppressed. Store failures are logged and the turn continues without them.
func NewClassifyNode(mm *conversations.MessagesManager, classifier Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.InboundMessage) (*model.Decision, error) {
		in.SenderID = strings.TrimSpace(in.SenderID)
		if in.SenderID == "" {
			return nil, errx.Invalid("sender id is required")
		}
		if in.ReceivedAt.IsZero() {
			in.ReceivedAt = time.Now()
		}

		history, err := mm.History(ctx, in.SenderID)
		if err != nil {
			logx.Error().Err(err).Str("client_id", in.SenderID).Msg("load history failed")
			history = nil
		}

		d := &model.Decision{Message: in, History: history}
		d.Classification = classifier.Classify(in.Text, model.SenderContext{
			SenderID:       in.SenderID,
			DisplayName:    in.DisplayName,
			PriorExchanges: conversations.Exchanges(history),
			ReceivedAt:     in.ReceivedAt,
		})

		outcome := d.Classification.Outcome
		if outcome == model.OutcomeNone || outcome.IsSuppressed() {
			logx.Debug().
				Str("client_id", in.SenderID).
				Str("outcome", string(outcome)).
				Str("rule", d.Classification.Rule).
				Str("evidence", d.Classification.Evidence).
				Msg("message dropped")
			return d, nil
		}

		owned, err := mm.ActiveAssignment(ctx, in.SenderID)
		if err != nil {
			logx.Error().Err(err).Str("client_id", in.SenderID).Msg("load active assignment failed")
		}
		d.HumanOwned = owned

		if err := mm.SaveInbound(ctx, in, outcome); err != nil {
			logx.Error().Err(err).Str("client_id", in.SenderID).Msg("save inbound message failed")
		}
		return d, nil
	})
}

// NewRouteCondition picks the node that produces the reply.
func NewRouteCondition() func(context.Context, *model.Decision) (string, error) {
	return func(ctx context.Context, d *model.Decision) (string, error) {
		outcome := d.Classification.Outcome
		switch {
		case outcome == model.OutcomeNone || outcome.IsSuppressed():
			return NodeSilent, nil
		case d.HumanOwned != nil:
			logx.Debug().Str("client_id", d.Message.SenderID).Str("agent_id", d.HumanOwned.AgentID).
				Msg("conversation owned by agent - no auto reply")
			return NodeSilent, nil
		case outcome.IsEscalation():
			return NodeHandoff, nil
		case outcome == model.OutcomeProductSearchReply:
			return NodeSearch, nil
		default:
			// conversational reply, no catalog context
			return NodeRespond, nil
		}
	}
}

// NewSilentNode ends the turn without a reply.
func NewSilentNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d *model.Decision) (*model.Reply, error) {
		return &model.Reply{
			ClientID:   d.Message.SenderID,
			Outcome:    d.Classification.Outcome,
			Rule:       d.Classification.Rule,
			Assignment: d.HumanOwned,
		}, nil
	})
}

// NewSearchNode attaches the ranked catalog result to the decision.
func NewSearchNode(searcher Searcher, maxResults int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d *model.Decision) (*model.Decision, error) {
		res := searcher.Search(d.Message.Text, maxResults)
		d.Search = &res
		logx.Debug().
			Str("client_id", d.Message.SenderID).
			Strs("keywords", res.Keywords).
			Int("matched", res.TotalMatched).
			Str("strategy", string(res.Strategy)).
			Msg("catalog searched")
		return d, nil
	})
}

// NewRespondNode renders the system prompt, generates the reply and records it. Any
// failure turns into the configured apology.
func NewRespondNode(
	mm *conversations.MessagesManager,
	gen llm.Generator,
	formatter ContextFormatter,
	promptConfig *model.ResponsePromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d *model.Decision) (*model.Reply, error) {
		reply := &model.Reply{
			ClientID: d.Message.SenderID,
			Outcome:  d.Classification.Outcome,
			Rule:     d.Classification.Rule,
			Search:   d.Search,
		}

		var catalogContext string
		if d.Search != nil {
			catalogContext = formatter.Context(*d.Search)
		}
		system, err := prompts.RenderResponseSystem(ctx, *promptConfig, catalogContext)
		if err == nil {
			reply.Text, err = gen.Generate(ctx, system, d.History, d.Message.Text)
		}
		if err != nil {
			logx.Error().Err(err).Str("client_id", d.Message.SenderID).Msg("reply generation failed - sending apology")
			reply.Text = promptConfig.Apology
			reply.Degraded = true
			return reply, nil
		}

		if err := mm.SaveReply(ctx, d.Message.SenderID, reply.Text); err != nil {
			logx.Error().Err(err).Str("client_id", d.Message.SenderID).Msg("save reply failed")
		}
		return reply, nil
	})
}

// NewHandoffNode assigns the client to an agent, notifies the agent and tells the
// client who will follow up.
func NewHandoffNode(
	mm *conversations.MessagesManager,
	router Assigner,
	notifier model.Notifier,
	promptConfig *model.ResponsePromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d *model.Decision) (*model.Reply, error) {
		clientID := d.Message.SenderID
		reply := &model.Reply{
			ClientID: clientID,
			Outcome:  d.Classification.Outcome,
			Rule:     d.Classification.Rule,
		}

		assignment, agent, err := router.Assign(ctx, clientID)
		if err != nil {
			logx.Error().Err(err).Str("client_id", clientID).Msg("assignment failed - sending apology")
			reply.Text = promptConfig.Apology
			reply.Degraded = true
			return reply, nil
		}
		if assignment == nil {
			reply.Text = promptConfig.NoAgents
			return reply, nil
		}
		reply.Assignment = assignment
		reply.Agent = agent

		client, err := mm.MarkEscalated(ctx, clientID)
		if err != nil {
			logx.Error().Err(err).Str("client_id", clientID).Msg("mark client escalated failed")
			client = &model.ClientRecord{ID: clientID, DisplayName: d.Message.DisplayName}
		}

		if agent != nil {
			notice := model.HandoffNotice{
				Agent:      *agent,
				Assignment: *assignment,
				Client:     *client,
				Reason:     d.Classification.Outcome,
				Recent:     recentWithCurrent(d),
			}
			if err := notifier.NotifyAgent(ctx, notice); err != nil {
				logx.Warn().Err(err).Str("client_id", clientID).Str("agent_id", agent.ID).Msg("notify agent failed")
			}
		}
		logx.Info().
			Str("client_id", clientID).
			Str("agent_id", assignment.AgentID).
			Str("reason", string(d.Classification.Outcome)).
			Msg("client escalated")

		reply.Text = prompts.RenderHandoff(*promptConfig, agent)
		if err := mm.SaveReply(ctx, clientID, reply.Text); err != nil {
			logx.Error().Err(err).Str("client_id", clientID).Msg("save handoff reply failed")
		}
		return reply, nil
	})
}

func recentWithCurrent(d *model.Decision) []model.Message {
	out := make([]model.Message, 0, len(d.History)+1)
	out = append(out, d.History...)
	return append(out, model.Message{
		ClientID:  d.Message.SenderID,
		Role:      model.RoleUser,
		Text:      d.Message.Text,
		CreatedAt: d.Message.ReceivedAt,
	})
}
