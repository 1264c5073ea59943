package policy

import (
	"strings"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

// MinPitchTurns is the first turn on which a product may be offered.
const MinPitchTurns = 3

// GreetingAllowed holds only for the first user message of a session that
// has not been greeted yet.
func GreetingAllowed(tc *model.TurnContext) bool {
	return !tc.State.HasGreeted && tc.IsFirstMessage
}

// isNewUser reports whether onboarding applies to this turn.
func isNewUser(tc *model.TurnContext) bool {
	return tc.Persona != nil && tc.Persona.IsNewUser()
}

// windowUserTexts returns the user texts inside the window, current message last.
func (e *Engine) windowUserTexts(tc *model.TurnContext) []string {
	msgs := tc.State.Messages
	if n := e.window - 1; len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	var out []string
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			out = append(out, m.Text)
		}
	}
	return append(out, tc.Text)
}

// ProblemExpressed reports a symptom anywhere in the window. A new user's
// stated goal counts as the problem.
func (e *Engine) ProblemExpressed(tc *model.TurnContext) bool {
	if isNewUser(tc) && tc.CollectedInfo.Goal != "" {
		return true
	}
	for _, t := range e.windowUserTexts(tc) {
		if HasSymptom(t) {
			return true
		}
	}
	return false
}

// cannedReplies answer objections and refusals. They open with "Понимаю" or
// "Понял" but never count as empathy for the pitch gate.
var cannedReplies = map[string]bool{
	PriceObjection: true,
	TrustObjection: true,
	ClosingPhrase:  true,
	BareNoReply:    true,
}

// Empathized reports whether the agent already answered with empathy or a
// clarifying question inside the window.
func (e *Engine) Empathized(tc *model.TurnContext) bool {
	msgs := tc.State.Messages
	if len(msgs) > e.window {
		msgs = msgs[len(msgs)-e.window:]
	}
	for _, m := range msgs {
		if m.Role != model.RoleAgent || cannedReplies[strings.TrimSpace(m.Text)] {
			continue
		}
		if IsEmpathetic(m.Text) {
			return true
		}
	}
	return false
}

// PitchAllowed is the product pitch gate.
func (e *Engine) PitchAllowed(tc *model.TurnContext) bool {
	if tc.TurnsCount < MinPitchTurns {
		return false
	}
	if isNewUser(tc) && !tc.CollectedInfo.Complete() {
		return false
	}
	return e.ProblemExpressed(tc) && e.Empathized(tc)
}
