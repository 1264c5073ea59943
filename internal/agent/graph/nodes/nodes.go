package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/vitachat-poc-v1/server/internal/agent/graph/conversations"
	"github.com/vitachat-poc-v1/server/internal/agent/graph/parsers"
	"github.com/vitachat-poc-v1/server/internal/agent/graph/prompts"
	"github.com/vitachat-poc-v1/server/internal/agent/model"
	"github.com/vitachat-poc-v1/server/internal/agent/policy"
	errx "github.com/vitachat-poc-v1/server/internal/core/error"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

const (
	NodeTurnTracker       = "TurnTracker"
	NodeReselectPersona   = "ReselectPersona"
	NodePromptComposer    = "PromptComposer"
	NodeResponseGenerator = "ResponseGenerator"
	NodeReplyParser       = "ReplyParser"
	NodeFallbackPolicy    = "FallbackPolicy"
	NodeDuplicateGuard    = "DuplicateGuard"
)

// PersonaLookup resolves the persona a session talks to.
type PersonaLookup interface {
	Persona(id string) (*model.Persona, bool)
}

// ProductLister lists the catalog shown in the prompt.
type ProductLister interface {
	Products() []model.Product
}

// NewTurnTrackerPreHandler resets the per-turn state.
func NewTurnTrackerPreHandler() func(context.Context, model.TurnInput, *model.AppState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.AppState) (model.TurnInput, error) {
		if in.State != nil {
			s.SessionID = in.State.SessionID
		}
		s.Turn = nil
		s.Prompt = nil
		s.GeneratorErr = nil
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewTurnTrackerNode counts the turn, classifies the message and runs onboarding.
func NewTurnTrackerNode(engine *policy.Engine, personas PersonaLookup) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*model.TurnContext, error) {
		if in.State == nil {
			return nil, fmt.Errorf("turn tracker: missing conversation state")
		}
		persona, ok := personas.Persona(in.State.PersonaID)
		if !ok {
			persona = nil
		}
		tc := engine.Begin(in.State, persona, in.Text)
		logx.Debug().
			Str("session_id", in.State.SessionID).
			Int("turn", tc.TurnsCount).
			Bool("first", tc.IsFirstMessage).
			Str("kind", string(tc.Kind)).
			Str("info_updated", tc.InfoUpdated).
			Msg("turn tracked")
		return tc, nil
	})
}

// NewTurnTrackerPostHandler saves the tracked turn to State
func NewTurnTrackerPostHandler() func(context.Context, *model.TurnContext, *model.AppState) (*model.TurnContext, error) {
	return func(ctx context.Context, out *model.TurnContext, s *model.AppState) (*model.TurnContext, error) {
		s.Turn = out
		return out, nil
	}
}

// NewPersonaCondition routes turns whose persona is unknown away from the generator.
func NewPersonaCondition() func(context.Context, *model.TurnContext) (string, error) {
	return func(ctx context.Context, tc *model.TurnContext) (string, error) {
		if tc.Persona == nil {
			logx.Warn().Str("session_id", tc.State.SessionID).Str("persona_id", tc.State.PersonaID).
				Msg("Unknown persona - asking the user to reselect")
			return NodeReselectPersona, nil
		}
		return NodePromptComposer, nil
	}
}

// NewReselectPersonaNode answers with the system message asking to pick a client again.
func NewReselectPersonaNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, tc *model.TurnContext) (*model.CandidateResponse, error) {
		return &model.CandidateResponse{
			Text:          errx.ReselectPersonaMessage,
			HasGreeted:    tc.State.HasGreeted,
			CollectedInfo: tc.State.CollectedInfo,
			Stage:         tc.State.Stage,
			Kind:          tc.Kind,
			Source:        model.SourceSystem,
		}, nil
	})
}

// NewPromptComposerNode renders the system prompt and history window. A render
// failure is recorded in State and yields an empty prompt, which the
// generator treats as unavailable.
func NewPromptComposerNode(
	engine *policy.Engine,
	mm *conversations.MessagesManager,
	products ProductLister,
	promptCfg model.PromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, tc *model.TurnContext) ([]*schema.Message, error) {
		gates := prompts.Gates{
			GreetingAllowed: policy.GreetingAllowed(tc),
			PitchAllowed:    engine.PitchAllowed(tc),
		}
		history := mm.Window(tc.State, tc.Text)

		msgs, err := prompts.RenderPolicyPrompt(ctx, promptCfg, tc, gates, products.Products(), history)
		if err != nil {
			logx.Error().Err(err).Str("session_id", tc.State.SessionID).Msg("Error rendering policy prompt")
			_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
				s.GeneratorErr = err
				return nil
			})
			return nil, nil
		}
		return msgs, nil
	})
}

// NewResponseGeneratorPreHandler keeps the prompt in State for diagnostics.
func NewResponseGeneratorPreHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, s *model.AppState) ([]*schema.Message, error) {
		s.Prompt = in
		logx.Debug().Str("session_id", s.SessionID).Int("messages", len(in)).Msg("AI thinking...")
		return in, nil
	}
}

// NewResponseGeneratorPostHandler records generator failures and usage cost.
func NewResponseGeneratorPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, s *model.AppState) (*schema.Message, error) {
		if err := generatorError(out); err != nil {
			if s.GeneratorErr == nil {
				s.GeneratorErr = err
			}
			return out, nil
		}
		recordUsage(s, out, modelName)
		return out, nil
	}
}

// NewReplyParserNode turns the generated message into a remote candidate.
func NewReplyParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*model.CandidateResponse, error) {
		if generatorError(msg) != nil {
			return &model.CandidateResponse{Source: model.SourceUnavailable}, nil
		}
		reply, err := parsers.ParseReply(msg.Content)
		if err != nil {
			logx.Warn().Err(err).Msg("Error parsing generated reply")
			_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
				s.GeneratorErr = err
				return nil
			})
			return &model.CandidateResponse{Source: model.SourceUnavailable}, nil
		}
		return &model.CandidateResponse{
			Text:     reply.Text,
			ShowCard: reply.ShowCard,
			Source:   model.SourceRemote,
		}, nil
	})
}

// NewGeneratorCondition sends unavailable candidates to the fallback policy.
func NewGeneratorCondition() func(context.Context, *model.CandidateResponse) (string, error) {
	return func(ctx context.Context, cand *model.CandidateResponse) (string, error) {
		if cand == nil || cand.Source == model.SourceUnavailable {
			return NodeFallbackPolicy, nil
		}
		return NodeDuplicateGuard, nil
	}
}

// NewFallbackPolicyNode answers the turn with the rule-based responder.
func NewFallbackPolicyNode(engine *policy.Engine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *model.CandidateResponse) (*model.CandidateResponse, error) {
		var (
			tc     *model.TurnContext
			genErr error
		)
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			tc, genErr = s.Turn, s.GeneratorErr
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if tc == nil {
			return nil, fmt.Errorf("fallback: missing turn in state")
		}

		logx.Warn().Err(genErr).Str("session_id", tc.State.SessionID).Int("turn", tc.TurnsCount).
			Msg("Generator unavailable - using fallback policy")
		out := engine.Fallback(tc)
		return &out, nil
	})
}

// NewDuplicateGuardNode runs every candidate through the gates and guards.
func NewDuplicateGuardNode(engine *policy.Engine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cand *model.CandidateResponse) (*model.CandidateResponse, error) {
		var tc *model.TurnContext
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			tc = s.Turn
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if tc == nil {
			return nil, fmt.Errorf("guard: missing turn in state")
		}

		out := engine.Finalize(tc, *cand)
		if len(out.Notes) > 0 {
			logx.Debug().Str("session_id", tc.State.SessionID).Strs("notes", out.Notes).Msg("reply rewritten by guards")
		}
		return &out, nil
	})
}
