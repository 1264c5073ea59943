package policy

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

// Fallback produces a reply without any model. It honours the same contract
// as a generated reply and is still passed through Finalize.
func (e *Engine) Fallback(tc *model.TurnContext) model.CandidateResponse {
	var out model.CandidateResponse
	if isNewUser(tc) {
		out = e.onboardingReply(tc)
	} else {
		out = e.establishedReply(tc)
	}
	out.Source = model.SourceFallback
	out.CollectedInfo = tc.CollectedInfo
	return out
}

func (e *Engine) establishedReply(tc *model.TurnContext) model.CandidateResponse {
	lower := normalize(tc.Text)
	firstName := ""
	if tc.Persona != nil {
		firstName = tc.Persona.FirstName()
	}

	switch {
	case GreetingAllowed(tc):
		return text(e.pick(greetings) + " " + firstName + "! " + askHowAreYou)
	case IsPositive(tc.Text):
		return text(e.pick(positiveResponses) + " " + positiveFollowUp)
	case RepeatedObjections(tc):
		return text(ClosingPhrase)
	case IsBareNo(tc.Text):
		return text(BareNoReply)
	case strings.Contains(lower, "дорого"):
		return text(PriceObjection)
	case strings.Contains(lower, "не верю"):
		return text(TrustObjection)
	case IsAgreement(tc.Text) && e.PitchAllowed(tc):
		return e.pitch(tc)
	case IsAgreement(tc.Text) && tc.Kind != model.KindComplaint:
		return text(e.pick(agreementPhrases) + " " + e.pick(questionVariants))
	case tc.TurnsCount < MinPitchTurns:
		return text(joinPhrases(e.pick(empathyPhrases), tellMoreFollowUp))
	case HasSymptom(tc.Text) && e.PitchAllowed(tc):
		return e.pitch(tc)
	case HasSymptom(tc.Text):
		return text(joinPhrases(e.pick(empathyPhrases), asQuestion(e.pick(clarificationQuestions))))
	default:
		return text(e.pick(questionVariants))
	}
}

func (e *Engine) onboardingReply(tc *model.TurnContext) model.CandidateResponse {
	info := tc.CollectedInfo
	switch {
	case info.Name == "":
		if GreetingAllowed(tc) {
			return text(e.pick(newUserGreetings) + " Как тебя зовут?")
		}
		return text(AskNameAgain)
	case info.Age == 0:
		if tc.InfoUpdated == FieldName {
			return text(e.pick(agreementPhrases) + " " + info.Name + "! " + askAgeFollowUp)
		}
		return text(askAgeAgain)
	case info.Goal == "":
		return text(e.pick(questionVariants))
	case tc.InfoUpdated == FieldGoal:
		return text(joinPhrases(e.pick(empathyPhrases), offerFollowUp))
	case IsAgreement(tc.Text) && e.PitchAllowed(tc):
		out := text(e.pick(agreementPhrases))
		out.ShowCard = true
		out.ProductID = SelectProduct(info.Goal)
		return out
	case tc.TurnsCount < MinPitchTurns:
		return text(joinPhrases(e.pick(empathyPhrases), tellMoreFollowUp))
	default:
		return text(joinPhrases(e.pick(empathyPhrases), offerFollowUp))
	}
}

// pitch offers the resolved product with a card.
func (e *Engine) pitch(tc *model.TurnContext) model.CandidateResponse {
	id := e.ResolveProduct(tc)
	name := id
	if e.products != nil {
		if p, ok := e.products.Product(id); ok {
			name = p.Name
		}
	}
	return model.CandidateResponse{
		Text:      name + " " + pitchFollowUp,
		ShowCard:  true,
		ProductID: id,
	}
}

func text(s string) model.CandidateResponse {
	return model.CandidateResponse{Text: strings.TrimSpace(s)}
}

// joinPhrases puts a full stop between a and b unless a already ends in
// punctuation or an emoji.
func joinPhrases(a, b string) string {
	r, _ := utf8.DecodeLastRuneInString(a)
	if unicode.IsLetter(r) {
		return a + ". " + b
	}
	return a + " " + b
}

func asQuestion(s string) string {
	if strings.HasSuffix(s, "?") {
		return s
	}
	return s + "?"
}
