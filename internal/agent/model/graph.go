package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside WithStatePreHandler, WithStatePostHandler
//     or compose.ProcessState, which serialise access.
//   - Never touch it outside handlers. Persistence goes through SessionRepository.
type AppState struct {
	SessionID string
	Turn      *TurnContext
	Prompt    []*schema.Message

	// GeneratorErr is the reason the remote candidate was discarded, if any.
	GeneratorErr error

	// Accumulated total LLM cost (USD) for this turn
	TotalCostUSD float64
}

// TurnContext is the tracked view of one user turn that every node reads.
type TurnContext struct {
	State          *ConversationState
	Persona        *Persona
	Text           string
	TurnsCount     int
	IsFirstMessage bool
	Kind           ReplyKind
	CollectedInfo  CollectedInfo
	// InfoUpdated is set when onboarding captured a field from this message.
	InfoUpdated string
}
