package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

type funcModel func(ctx context.Context, in []*schema.Message) (*schema.Message, error)

func (f funcModel) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	return f(ctx, in)
}

func (f funcModel) Stream(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := f(ctx, in)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func TestNewChatModelsProviders(t *testing.T) {
	ctx := context.Background()

	cms, err := NewChatModels(ctx, ChatModelConfig{Generator: model.GeneratorConfig{Provider: "none"}})
	require.NoError(t, err)
	assert.Nil(t, cms.Generator)

	_, err = NewChatModels(ctx, ChatModelConfig{Generator: model.GeneratorConfig{Provider: "openai", Model: "gpt-4o-mini"}})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewChatModels(ctx, ChatModelConfig{Generator: model.GeneratorConfig{Provider: "gemini", Model: "gemini-2.5-flash"}})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewChatModels(ctx, ChatModelConfig{Generator: model.GeneratorConfig{Provider: "claude"}})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	cms, err = NewChatModels(ctx, ChatModelConfig{
		Generator:   model.GeneratorConfig{Provider: "OpenAI", Model: "gpt-4o-mini"},
		Credentials: model.ProviderCredentials{OpenAIKey: "k"},
	})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIChatModel{}, cms.Generator)
	assert.Equal(t, "gpt-4o-mini", cms.ModelName)
}

func TestGuardedModelTurnsFailuresIntoUnavailable(t *testing.T) {
	ctx := context.Background()
	prompt := []*schema.Message{schema.UserMessage("hi")}

	g := NewResponseGeneratorNode(&ChatModels{}, time.Second)
	out, err := g.Generate(ctx, prompt)
	require.NoError(t, err)
	assert.ErrorContains(t, generatorError(out), "no generator")

	failing := funcModel(func(context.Context, []*schema.Message) (*schema.Message, error) {
		return nil, errors.New("quota exceeded")
	})
	g = NewResponseGeneratorNode(&ChatModels{Generator: failing}, time.Second)
	out, err = g.Generate(ctx, prompt)
	require.NoError(t, err)
	assert.ErrorContains(t, generatorError(out), "quota exceeded")

	out, err = g.Generate(ctx, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, generatorError(out), "empty prompt")

	slow := funcModel(func(ctx context.Context, _ []*schema.Message) (*schema.Message, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	g = NewResponseGeneratorNode(&ChatModels{Generator: slow}, 10*time.Millisecond)
	out, err = g.Generate(ctx, prompt)
	require.NoError(t, err)
	assert.ErrorContains(t, generatorError(out), "deadline exceeded")
}

func TestGuardedModelPassesReplyThrough(t *testing.T) {
	ok := funcModel(func(context.Context, []*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage("Как самочувствие?", nil), nil
	})
	g := NewResponseGeneratorNode(&ChatModels{Generator: ok}, time.Second)

	out, err := g.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.NoError(t, generatorError(out))
	assert.Equal(t, "Как самочувствие?", out.Content)
}

func TestRecordUsageAccumulatesCost(t *testing.T) {
	s := &model.AppState{SessionID: "s"}
	out := &schema.Message{ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
		PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000,
	}}}

	recordUsage(s, out, "gpt-4o-mini")
	assert.InDelta(t, 0.75, s.TotalCostUSD, 1e-9)

	recordUsage(s, &schema.Message{}, "gpt-4o-mini")
	assert.InDelta(t, 0.75, s.TotalCostUSD, 1e-9)
}
