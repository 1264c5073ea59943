// Package policy is the dialogue-policy engine: turn tracking, the greeting
// and pitch gates, the rule-based fallback responder and the guards every
// candidate reply passes through before it is shown.
//
// Everything here is pure: callers pass the current ConversationState in and
// get values out. Nothing in the package persists or blocks.
package policy

import (
	"fmt"
	"time"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

// DefaultWindow is how many recent messages the gates and the prompt look at.
const DefaultWindow = 20

// ProductCatalog resolves product ids to catalog entries.
type ProductCatalog interface {
	Product(id string) (*model.Product, bool)
}

type Engine struct {
	picker   Picker
	products ProductCatalog
	window   int
}

// NewEngine builds an engine. window <= 0 selects DefaultWindow.
func NewEngine(picker Picker, products ProductCatalog, window int) *Engine {
	if picker == nil {
		picker = NewRandPicker(0)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{picker: picker, products: products, window: window}
}

// Window returns the message window size.
func (e *Engine) Window() int { return e.window }

// Begin tracks the turn, classifies the text and, for new users, runs the
// onboarding collector. persona may be nil when the session points at an
// unknown persona.
func (e *Engine) Begin(state *model.ConversationState, persona *model.Persona, text string) *model.TurnContext {
	info := Track(state)
	tc := &model.TurnContext{
		State:          state,
		Persona:        persona,
		Text:           text,
		TurnsCount:     info.TurnsCount,
		IsFirstMessage: info.IsFirstMessage,
		Kind:           Classify(text),
		CollectedInfo:  state.CollectedInfo,
	}
	if persona != nil && persona.IsNewUser() {
		tc.CollectedInfo, tc.InfoUpdated = Collect(state.CollectedInfo, text)
	}
	return tc
}

// Respond is the fallback path end to end: Fallback followed by Finalize.
func (e *Engine) Respond(tc *model.TurnContext) model.CandidateResponse {
	return e.Finalize(tc, e.Fallback(tc))
}

// Fold appends the user message and the final reply to a copy of state and
// advances the counters.
func Fold(state *model.ConversationState, userText string, out model.CandidateResponse, now time.Time) *model.ConversationState {
	next := state.Clone()
	agent := model.Message{Role: model.RoleAgent, Text: out.Text, Timestamp: now}
	if out.ShowCard {
		agent.ProductID = out.ProductID
	}
	next.Messages = append(next.Messages,
		model.Message{Role: model.RoleUser, Text: userText, Timestamp: now},
		agent,
	)
	next.TurnsCount++
	next.HasGreeted = next.HasGreeted || out.HasGreeted
	next.CollectedInfo = out.CollectedInfo
	if out.Stage != "" {
		next.Stage = out.Stage
	}
	next.UpdatedAt = now
	return next
}

// OpeningGreeting is the agent line shown when a persona is selected.
func (e *Engine) OpeningGreeting(p *model.Persona) string {
	if p.IsNewUser() {
		return NewUserOpening
	}
	return fmt.Sprintf(e.picker.Pick(openingTemplates), p.FirstName())
}

// Open adds the opening greeting to a fresh state and marks it greeted.
func (e *Engine) Open(state *model.ConversationState, p *model.Persona, now time.Time) *model.ConversationState {
	next := state.Clone()
	next.Messages = append(next.Messages, model.Message{
		Role:      model.RoleAgent,
		Text:      e.OpeningGreeting(p),
		Timestamp: now,
	})
	next.HasGreeted = true
	if p.IsNewUser() {
		next.Stage = model.StageCollectingInfo
	}
	next.UpdatedAt = now
	return next
}

func (e *Engine) pick(pool []string) string {
	return e.picker.Pick(pool)
}
