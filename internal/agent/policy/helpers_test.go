package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitachat-poc-v1/server/internal/agent/catalog"
	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(FixedPicker{}, catalog.MustLoad(), 0)
}

func mustPersona(t *testing.T, id string) *model.Persona {
	t.Helper()
	p, ok := catalog.MustLoad().Persona(id)
	require.True(t, ok, "persona %s", id)
	return p
}

// stateWith builds a state from alternating role/text pairs.
func stateWith(personaID string, lines ...string) *model.ConversationState {
	s := model.NewConversationState("s-test", personaID)
	for i := 0; i+1 < len(lines); i += 2 {
		role := model.Role(lines[i])
		s.Messages = append(s.Messages, model.Message{Role: role, Text: lines[i+1], Timestamp: testNow})
		if role == model.RoleUser {
			s.TurnsCount++
		}
		if role == model.RoleAgent {
			s.HasGreeted = true
		}
	}
	return s
}

// play answers one user turn through the fallback path and folds the result.
func play(e *Engine, state *model.ConversationState, p *model.Persona, text string) (model.CandidateResponse, *model.ConversationState) {
	tc := e.Begin(state, p, text)
	out := e.Respond(tc)
	return out, Fold(state, text, out, testNow)
}
