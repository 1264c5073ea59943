package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/vitachat-poc-v1/server/internal/agent/graph/conversations"
	"github.com/vitachat-poc-v1/server/internal/agent/graph/nodes"
	"github.com/vitachat-poc-v1/server/internal/agent/graph/observers"
	"github.com/vitachat-poc-v1/server/internal/agent/model"
	"github.com/vitachat-poc-v1/server/internal/agent/policy"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

// Runner executes the compiled turn graph for one user message.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error)
}

// Catalog is what the graph reads from the persona and product store.
type Catalog interface {
	nodes.PersonaLookup
	nodes.ProductLister
}

// Config holds everything needed to compose the turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the
// generator and the MessagesManager.
type Config struct {
	Generator   model.GeneratorConfig
	Credentials model.ProviderCredentials
	Prompt      model.PromptConfig
	Engine      *policy.Engine
	Catalog     Catalog
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	Engine          *policy.Engine
	Catalog         Catalog
	Prompt          model.PromptConfig
	Timeout         time.Duration
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.CandidateResponse]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *model.CandidateResponse]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.CandidateResponse, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("turn graph returned no response")
	}
	return out, nil
}

// BuildTurnGraph creates the generator, builds the graph and returns a Runner.
// A provider without credentials degrades to the fallback policy only.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Engine == nil || cfg.Catalog == nil {
		return nil, fmt.Errorf("engine and catalog are required")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		Generator:   cfg.Generator,
		Credentials: cfg.Credentials,
	})
	if errors.Is(err, nodes.ErrMissingAPIKey) {
		logx.Warn().Err(err).Str("provider", cfg.Generator.Provider).
			Msg("Generator credentials missing - replies come from the fallback policy")
		cms, err = &nodes.ChatModels{Provider: model.ProviderNone}, nil
	}
	if err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: conversations.NewMessagesManager(cfg.Engine.Window()),
		Engine:          cfg.Engine,
		Catalog:         cfg.Catalog,
		Prompt:          cfg.Prompt,
		Timeout:         cfg.Generator.Timeout,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Str("provider", cms.Provider).Str("model", cms.ModelName).Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled turn graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.CandidateResponse], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil {
		return nil, fmt.Errorf("chat models are not initialized")
	}
	if config.MessagesManager == nil || config.Engine == nil || config.Catalog == nil {
		return nil, fmt.Errorf("messages manager, engine and catalog are required")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.CandidateResponse](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
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
	cfg := b.config
	adds := []error{
		b.graph.AddLambdaNode(nodes.NodeTurnTracker,
			nodes.NewTurnTrackerNode(cfg.Engine, cfg.Catalog),
			compose.WithStatePreHandler(nodes.NewTurnTrackerPreHandler()),
			compose.WithStatePostHandler(nodes.NewTurnTrackerPostHandler()),
		),
		b.graph.AddLambdaNode(nodes.NodeReselectPersona,
			nodes.NewReselectPersonaNode(),
		),
		b.graph.AddLambdaNode(nodes.NodePromptComposer,
			nodes.NewPromptComposerNode(cfg.Engine, cfg.MessagesManager, cfg.Catalog, cfg.Prompt),
		),
		b.graph.AddChatModelNode(nodes.NodeResponseGenerator,
			nodes.NewResponseGeneratorNode(cfg.ChatModels, cfg.Timeout),
			compose.WithStatePreHandler(nodes.NewResponseGeneratorPreHandler()),
			compose.WithStatePostHandler(nodes.NewResponseGeneratorPostHandler(cfg.ChatModels.ModelName)),
		),
		b.graph.AddLambdaNode(nodes.NodeReplyParser,
			nodes.NewReplyParserNode(),
		),
		b.graph.AddLambdaNode(nodes.NodeFallbackPolicy,
			nodes.NewFallbackPolicyNode(cfg.Engine),
		),
		b.graph.AddLambdaNode(nodes.NodeDuplicateGuard,
			nodes.NewDuplicateGuardNode(cfg.Engine),
		),
	}
	if err := errors.Join(adds...); err != nil {
		logx.Error().Err(err).Msg("Error adding graph nodes")
		return fmt.Errorf("error adding graph nodes: %w", err)
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeTurnTracker},
		{nodes.NodeReselectPersona, compose.END},
		{nodes.NodePromptComposer, nodes.NodeResponseGenerator},
		{nodes.NodeResponseGenerator, nodes.NodeReplyParser},
		{nodes.NodeFallbackPolicy, nodes.NodeDuplicateGuard},
		{nodes.NodeDuplicateGuard, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	personaBranch := compose.NewGraphBranch(
		nodes.NewPersonaCondition(),
		map[string]bool{
			nodes.NodeReselectPersona: true,
			nodes.NodePromptComposer:  true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeTurnTracker, personaBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding persona branch")
		return fmt.Errorf("error adding persona branch: %w", err)
	}

	generatorBranch := compose.NewGraphBranch(
		nodes.NewGeneratorCondition(),
		map[string]bool{
			nodes.NodeFallbackPolicy: true,
			nodes.NodeDuplicateGuard: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeReplyParser, generatorBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding generator branch")
		return fmt.Errorf("error adding generator branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.CandidateResponse], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
