package nodes

import (
	"errors"

	"github.com/cloudwego/eino/schema"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

const extraGeneratorError = "generator_error"

// ===== Small helpers to keep handlers simple/readable =====

// unavailableMessage is the placeholder the ResponseGenerator node emits when
// the remote call could not produce a reply.
func unavailableMessage(err error) *schema.Message {
	return &schema.Message{
		Role:  schema.Assistant,
		Extra: map[string]any{extraGeneratorError: err.Error()},
	}
}

// generatorError returns the failure recorded by unavailableMessage, or nil.
func generatorError(msg *schema.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	if v, ok := msg.Extra[extraGeneratorError].(string); ok {
		return errors.New(v)
	}
	return nil
}

// recordUsage computes and logs the cost of one generator call and
// accumulates it into the turn state.
func recordUsage(state *model.AppState, out *schema.Message, modelName string) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	state.TotalCostUSD += totalC

	logx.Debug().
		Str("session_id", state.SessionID).
		Str("node", NodeResponseGenerator).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", state.TotalCostUSD).
		Msg("LLM usage")
}
