package policy

import "github.com/vitachat-poc-v1/server/internal/agent/model"

// TurnInfo is the counter view of a turn about to be answered.
type TurnInfo struct {
	TurnsCount     int
	IsFirstMessage bool
}

// Track counts the submitted message as a turn: TurnsCount is the number of
// prior user messages plus one.
func Track(state *model.ConversationState) TurnInfo {
	prior := state.TurnsCount
	return TurnInfo{TurnsCount: prior + 1, IsFirstMessage: prior == 0}
}
