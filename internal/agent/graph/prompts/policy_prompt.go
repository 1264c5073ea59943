package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
	"github.com/vitachat-poc-v1/server/internal/agent/policy"
)

//go:embed template/policy_prompt.txt
var policySystemPrompt string

// Gates are the policy decisions the prompt has to spell out for the model.
type Gates struct {
	GreetingAllowed bool
	PitchAllowed    bool
}

// RenderPolicyPrompt renders the system prompt for one turn followed by the
// history window. Rendering goes through the Eino prompt component so the
// prompt callbacks fire.
func RenderPolicyPrompt(ctx context.Context, cfg model.PromptConfig, tc *model.TurnContext, gates Gates, products []model.Product, history []*schema.Message) ([]*schema.Message, error) {
	if tc == nil || tc.Persona == nil {
		return nil, fmt.Errorf("policy prompt render: missing persona")
	}

	isNew := tc.Persona.IsNewUser()
	onboarding := ""
	if isNew {
		onboarding = policy.NextOnboardingField(tc.CollectedInfo)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(policySystemPrompt),
		schema.MessagesPlaceholder("history", false),
	)
	vars := map[string]any{
		"StoreName":       cfg.StoreName,
		"IsNew":           isNew,
		"FirstName":       tc.Persona.FirstName(),
		"UserName":        tc.CollectedInfo.Name,
		"HasGreeted":      tc.State.HasGreeted,
		"GreetingAllowed": gates.GreetingAllowed,
		"PitchAllowed":    gates.PitchAllowed,
		"TurnsCount":      tc.TurnsCount,
		"Kind":            string(tc.Kind),
		"OnboardingField": onboarding,
		"Products":        products,
		"Marker":          policy.ProductCardMarker,
		"history":         history,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("policy prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("policy prompt render: empty result")
	}
	return msgs, nil
}
