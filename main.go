package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/vitachat-poc-v1/server/internal/agent/catalog"
	"github.com/vitachat-poc-v1/server/internal/agent/chat"
	"github.com/vitachat-poc-v1/server/internal/agent/graph"
	"github.com/vitachat-poc-v1/server/internal/agent/model"
	"github.com/vitachat-poc-v1/server/internal/agent/policy"
	"github.com/vitachat-poc-v1/server/internal/agent/repo"
	"github.com/vitachat-poc-v1/server/internal/cart"
	"github.com/vitachat-poc-v1/server/internal/core"
	"github.com/vitachat-poc-v1/server/internal/server"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
	pkgredis "github.com/vitachat-poc-v1/server/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string           `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Redis pkgredis.Config

	// Generator
	Generator   model.GeneratorConfig
	Credentials model.ProviderCredentials

	// Agent configs
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
}

var envFile string

func main() {
	root := &cobra.Command{
		Use:           "vitachat",
		Short:         "Supplement shop chat assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.AddCommand(newServeCmd(), newDemoCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (AppConfig, error) {
	if err := godotenv.Load(envFile); err != nil {
		logx.Warn().Err(err).Str("file", envFile).Msg("Could not load .env file")
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to process environment config: %w", err)
	}
	return cfg, nil
}

// app is everything a command needs, wired from AppConfig.
type app struct {
	catalog *catalog.Store
	carts   *cart.Store
	chat    *chat.Service
	closers []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func newApp(ctx context.Context, cfg AppConfig, opts ...chat.Option) (*app, error) {
	store, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	a := &app{catalog: store, carts: cart.NewStore()}

	var sessions model.SessionRepository
	switch cfg.Conversation.Store {
	case model.StoreRedis:
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb)
		sessions = repo.NewRedisSessionRepository(rdb, cfg.Conversation.TTL)
		logx.Info().Msg("Connected to Redis successfully")
	case model.StoreMemory, "":
		sessions = repo.NewMemorySessionRepository(cfg.Conversation.TTL)
	default:
		return nil, fmt.Errorf("unknown CONVERSATION_STORE %q", cfg.Conversation.Store)
	}

	engine := policy.NewEngine(policy.NewRandPicker(cfg.Conversation.RandomSeed), store, cfg.Conversation.HistoryWindow)

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		Generator:   cfg.Generator,
		Credentials: cfg.Credentials,
		Prompt:      cfg.Prompt,
		Engine:      engine,
		Catalog:     store,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	a.chat = chat.NewService(runner, engine, store, sessions, a.carts, chat.ConfigFrom(cfg.Conversation), opts...)
	return a, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{Environment: cfg.Environment})

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := server.NewRouter(server.Deps{Chat: a.chat, Catalog: a.catalog, Carts: a.carts})
			return server.Run(cmd.Context(), cfg.HTTPAddr, handler)
		},
	}
}
