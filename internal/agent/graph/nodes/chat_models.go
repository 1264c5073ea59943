package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

var (
	ErrMissingAPIKey   = errors.New("generator api key is not set")
	ErrUnknownProvider = errors.New("unknown generator provider")
	errNoGenerator     = errors.New("no generator configured")
	errEmptyPrompt     = errors.New("empty prompt")
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	Generator   model.GeneratorConfig
	Credentials model.ProviderCredentials
}

// ChatModels holds the remote model behind the ResponseGenerator node.
// Generator is nil for the "none" provider.
type ChatModels struct {
	Generator einomodel.BaseChatModel
	Provider  string
	ModelName string
}

// NewChatModels creates the generator for the configured provider.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	gc := config.Generator
	provider := strings.ToLower(strings.TrimSpace(gc.Provider))

	switch provider {
	case model.ProviderNone, "":
		return &ChatModels{Provider: model.ProviderNone}, nil

	case model.ProviderOpenAI:
		if config.Credentials.OpenAIKey == "" {
			return nil, fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
		}
		cm, err := NewOpenAIChatModel(OpenAIConfig{
			APIKey:           config.Credentials.OpenAIKey,
			BaseURL:          config.Credentials.OpenAIBaseURL,
			Model:            gc.Model,
			MaxTokens:        gc.MaxTokens,
			Temperature:      gc.Temperature,
			TopP:             gc.TopP,
			FrequencyPenalty: gc.FrequencyPenalty,
			PresencePenalty:  gc.PresencePenalty,
			MaxRetries:       gc.MaxRetries,
			Timeout:          gc.Timeout,
		})
		if err != nil {
			logx.Error().Err(err).Msg("Error creating OpenAI model")
			return nil, fmt.Errorf("error creating OpenAI model: %w", err)
		}
		return &ChatModels{Generator: cm, Provider: provider, ModelName: gc.Model}, nil

	case model.ProviderGemini:
		if config.Credentials.GeminiKey == "" {
			return nil, fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
		}
		clientCfg := &genai.ClientConfig{
			APIKey:  config.Credentials.GeminiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if config.Credentials.GeminiBaseURL != "" {
			clientCfg.HTTPOptions.BaseURL = config.Credentials.GeminiBaseURL
		}
		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			logx.Error().Err(err).Msg("Error creating Gemini client")
			return nil, fmt.Errorf("error creating Gemini client: %w", err)
		}

		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       gc.Model,
			Temperature: &gc.Temperature,
			TopP:        &gc.TopP,
			MaxTokens:   &gc.MaxTokens,
			ThinkingConfig: &genai.ThinkingConfig{
				IncludeThoughts: false,
				ThinkingBudget:  genai.Ptr(gc.ThinkingBudget),
			},
		})
		if err != nil {
			logx.Error().Err(err).Msg("Error creating Gemini model")
			return nil, fmt.Errorf("error creating Gemini model: %w", err)
		}
		return &ChatModels{Generator: cm, Provider: provider, ModelName: gc.Model}, nil
	}

	return nil, fmt.Errorf("%q: %w", gc.Provider, ErrUnknownProvider)
}

// guardedModel wraps the remote generator so a failed, slow or missing call
// turns into an empty assistant message carrying the error in Extra. The
// turn then continues on the fallback path instead of failing.
type guardedModel struct {
	inner   einomodel.BaseChatModel
	timeout time.Duration
}

// NewResponseGeneratorNode wraps the configured generator for the ResponseGenerator node.
func NewResponseGeneratorNode(cms *ChatModels, timeout time.Duration) einomodel.BaseChatModel {
	var inner einomodel.BaseChatModel
	if cms != nil {
		inner = cms.Generator
	}
	return &guardedModel{inner: inner, timeout: timeout}
}

func (g *guardedModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if g.inner == nil {
		return unavailableMessage(errNoGenerator), nil
	}
	if len(in) == 0 {
		return unavailableMessage(errEmptyPrompt), nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.inner.Generate(ctx, in, opts...)
	if err != nil {
		return unavailableMessage(err), nil
	}
	if out == nil {
		return unavailableMessage(errors.New("nil message")), nil
	}
	return out, nil
}

func (g *guardedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := g.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (g *guardedModel) GetType() string {
	if t, ok := g.inner.(components.Typer); ok {
		return t.GetType()
	}
	return "Guarded"
}

// IsCallbacksEnabled reports whether the wrapped model emits its own
// callbacks, so the graph does not emit them twice.
func (g *guardedModel) IsCallbacksEnabled() bool {
	c, ok := g.inner.(components.Checker)
	return ok && c.IsCallbacksEnabled()
}
