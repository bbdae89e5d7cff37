package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/chative-salesdesk/server/internal/agent/graph/conversations"
	"github.com/chative-salesdesk/server/internal/agent/graph/nodes"
	"github.com/chative-salesdesk/server/internal/agent/graph/observers"
	"github.com/chative-salesdesk/server/internal/agent/llm"
	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// maxRunSteps bounds one turn. The longest path is classify, search, respond.
const maxRunSteps = 10

// Runner executes the compiled message pipeline for one inbound message.
type Runner interface {
	Invoke(ctx context.Context, in model.InboundMessage) (*model.Reply, error)
}

// GraphConfig holds all collaborators needed to build the graph.
type GraphConfig struct {
	Store          model.Store
	Classifier     nodes.Classifier
	Searcher       nodes.Searcher
	Formatter      nodes.ContextFormatter
	Router         nodes.Assigner
	Notifier       model.Notifier
	Generator      llm.Generator
	ResponsePrompt model.ResponsePromptConfig
	Conversation   model.ConversationConfig
	// MaxResults <= 0 lets the searcher use its own default.
	MaxResults int
}

// GraphBuilder handles the construction of the message pipeline graph.
type GraphBuilder struct {
	config          *GraphConfig
	messagesManager *conversations.MessagesManager
	graph           *compose.Graph[model.InboundMessage, *model.Reply]
}

type graphRunner struct {
	runnable compose.Runnable[model.InboundMessage, *model.Reply]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.InboundMessage) (reply *model.Reply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().Interface("panic", rec).Str("client_id", in.SenderID).Msg("message pipeline panicked")
			reply, err = nil, fmt.Errorf("message pipeline panic: %v", rec)
		}
	}()

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return &model.Reply{ClientID: in.SenderID}, nil
	}
	return out, nil
}

// BuildResponseGraph builds and compiles the graph and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Response graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled message pipeline.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.InboundMessage, *model.Reply], error) {
	// Basic config validation
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if config.Classifier == nil || config.Searcher == nil || config.Formatter == nil {
		return nil, fmt.Errorf("classifier, searcher and formatter are required")
	}
	if config.Router == nil || config.Notifier == nil {
		return nil, fmt.Errorf("router and notifier are required")
	}
	if config.Generator == nil {
		return nil, fmt.Errorf("generator is nil")
	}

	builder := &GraphBuilder{
		config:          config,
		messagesManager: conversations.NewMessagesManager(config.Store, config.Conversation),
		graph:           compose.NewGraph[model.InboundMessage, *model.Reply](),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	mm := b.messagesManager
	lambdas := []struct {
		name   string
		lambda *compose.Lambda
	}{
		{nodes.NodeClassify, nodes.NewClassifyNode(mm, b.config.Classifier)},
		{nodes.NodeSilent, nodes.NewSilentNode()},
		{nodes.NodeSearch, nodes.NewSearchNode(b.config.Searcher, b.config.MaxResults)},
		{nodes.NodeRespond, nodes.NewRespondNode(mm, b.config.Generator, b.config.Formatter, &b.config.ResponsePrompt)},
		{nodes.NodeHandoff, nodes.NewHandoffNode(mm, b.config.Router, b.config.Notifier, &b.config.ResponsePrompt)},
	}

	for _, n := range lambdas {
		if err := b.graph.AddLambdaNode(n.name, n.lambda, compose.WithNodeName(n.name)); err != nil {
			logx.Error().Err(err).Str("node", n.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", n.name, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeClassify},
		{nodes.NodeSearch, nodes.NodeRespond},
		{nodes.NodeRespond, compose.END},
		{nodes.NodeHandoff, compose.END},
		{nodes.NodeSilent, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(),
		map[string]bool{
			nodes.NodeSilent:  true,
			nodes.NodeHandoff: true,
			nodes.NodeSearch:  true,
			nodes.NodeRespond: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeClassify, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.InboundMessage, *model.Reply], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("salesdesk"),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
