package policy

import "github.com/vitachat-poc-v1/server/internal/agent/model"

// NextStage advances the stage machine after a finalized reply. products is
// only entered when a card is shown, so it is reachable only through the
// pitch gate. objections is left once the user names a new problem or says
// all is well.
func NextStage(tc *model.TurnContext, out model.CandidateResponse, objections bool) model.Stage {
	prev := tc.State.Stage
	if prev == "" {
		prev = model.StageGreeting
	}
	switch {
	case objections:
		return model.StageObjections
	case out.ShowCard:
		return model.StageProducts
	case isNewUser(tc) && !out.CollectedInfo.Complete():
		return model.StageCollectingInfo
	case prev == model.StageObjections && tc.Kind == model.KindComplaint:
		return model.StageSymptoms
	case prev == model.StageObjections && IsPositive(tc.Text):
		return model.StageGreeting
	case prev == model.StageProducts || prev == model.StageObjections:
		return prev
	case isNewUser(tc), tc.Kind == model.KindComplaint:
		return model.StageSymptoms
	default:
		return prev
	}
}
