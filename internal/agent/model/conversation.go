package model

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one visible line of the conversation.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	ProductID string    `json:"product_id,omitempty"`
}

// CollectedInfo holds what onboarding has learned about a new user.
// Age 0 means not yet known.
type CollectedInfo struct {
	Name string `json:"name,omitempty"`
	Age  int    `json:"age,omitempty"`
	Goal string `json:"goal,omitempty"`
}

func (c CollectedInfo) Complete() bool {
	return c.Name != "" && c.Age > 0 && c.Goal != ""
}

// ConversationState is the per-session dialogue state. It is replaced with a
// fresh value on persona switch or session deletion, never patched.
type ConversationState struct {
	SessionID     string        `json:"session_id"`
	PersonaID     string        `json:"persona_id"`
	Messages      []Message     `json:"messages"`
	TurnsCount    int           `json:"turns_count"`
	HasGreeted    bool          `json:"has_greeted"`
	CollectedInfo CollectedInfo `json:"collected_info"`
	Stage         Stage         `json:"stage"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewConversationState returns the empty state for a session bound to a persona.
func NewConversationState(sessionID, personaID string) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		PersonaID: personaID,
		Messages:  []Message{},
		Stage:     StageGreeting,
		UpdatedAt: time.Now().UTC(),
	}
}

// UserTexts returns the text of the last n user messages, oldest first.
func (s *ConversationState) UserTexts(n int) []string {
	return lastTexts(s.Messages, RoleUser, n)
}

// AgentTexts returns the text of the last n agent messages, oldest first.
func (s *ConversationState) AgentTexts(n int) []string {
	return lastTexts(s.Messages, RoleAgent, n)
}

// Clone returns a deep copy so callers can build the next state without
// mutating the stored one.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	return &out
}

func lastTexts(msgs []Message, role Role, n int) []string {
	var out []string
	for i := len(msgs) - 1; i >= 0 && (n <= 0 || len(out) < n); i-- {
		if msgs[i].Role == role {
			out = append(out, msgs[i].Text)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SessionRepository persists ConversationState between turns.
type SessionRepository interface {
	// Save replaces the stored state for state.SessionID and refreshes its TTL.
	Save(ctx context.Context, state *ConversationState) error

	// Load returns the stored state or errx.ErrSessionNotFound.
	Load(ctx context.Context, sessionID string) (*ConversationState, error)

	// Delete removes the state; deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
