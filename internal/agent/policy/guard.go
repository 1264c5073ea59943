package policy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

const (
	duplicatePrefixRunes = 50
	minDuplicatePrefix   = 10
	recentAgentTurns     = 3
	recentUserTurns      = 3
	objectionLimit       = 2
)

// Notes recorded on a CandidateResponse by Finalize.
const (
	NoteMarker         = "marker_stripped"
	NoteCardGated      = "card_suppressed_by_gate"
	NoteGreeting       = "greeting_stripped"
	NoteProfileLeak    = "profile_leak_removed"
	NoteDuplicate      = "duplicate_substituted"
	NoteObjections     = "repeated_objections"
	NoteEmptyReply     = "empty_reply_replaced"
	NoteUnknownProduct = "unknown_product_replaced"
)

var (
	greetingPrefixRe = regexp.MustCompile(`^\s*(?:[Пп]ривет\p{L}*|[Зз]дравствуй\p{L}*|[Хх]эй|[Хх]ай|[Дд]обр(?:ый|ое|ого) (?:день|вечер|утро|дня|вечера)|[Рр]ад (?:тебя )?видеть)(?:,?\s*\p{Lu}\p{L}*)?[\s,!.\p{So}\x{FE0F}]*`)
	sentenceRe       = regexp.MustCompile(`[^.!?…]+[.!?…]*\s*`)
)

// duplicateKey is the normalised 50-rune prefix two replies are compared on.
func duplicateKey(text string) string {
	r := []rune(text)
	if len(r) > duplicatePrefixRunes {
		r = r[:duplicatePrefixRunes]
	}
	return strings.ToLower(strings.TrimSpace(string(r)))
}

// IsDuplicate reports whether candidate repeats one of recent on its first 50
// characters. Prefixes of 10 characters or fewer never count.
func IsDuplicate(candidate string, recent []string) bool {
	key := duplicateKey(candidate)
	if utf8.RuneCountInString(key) <= minDuplicatePrefix {
		return false
	}
	for _, r := range recent {
		if duplicateKey(r) == key {
			return true
		}
	}
	return false
}

// substituteDuplicate builds "<empathy>! Что ещё важно?", avoiding a
// substitute that would itself repeat a recent line.
func (e *Engine) substituteDuplicate(recent []string) string {
	first := e.pick(empathyPhrases)
	for _, p := range append([]string{first}, empathyPhrases...) {
		text := p + "! " + duplicateFollowUp
		if !IsDuplicate(text, recent) {
			return text
		}
	}
	return first + "! " + duplicateFollowUp
}

// StripGreeting removes a leading greeting clause and reports whether one was found.
func StripGreeting(text string) (string, bool) {
	loc := greetingPrefixRe.FindStringIndex(text)
	if loc == nil {
		return text, false
	}
	return capitalize(strings.TrimSpace(text[loc[1]:])), true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// profileLeaks lists the profile fragments a reply must never quote. Goals
// and issues the user named themselves inside the window are not leaks.
func (e *Engine) profileLeaks(tc *model.TurnContext) (ages []*regexp.Regexp, phrases []string) {
	said := normalize(strings.Join(e.windowUserTexts(tc), "\n"))
	if p := tc.Persona; p != nil {
		if p.Age > 0 {
			ages = append(ages, ageMentionRe(p.Age))
		}
		if !p.IsNewUser() {
			for _, f := range append(append([]string(nil), p.Goals...), p.Health.Issues...) {
				if f = normalize(f); !strings.Contains(said, f) {
					phrases = append(phrases, f)
				}
			}
		}
	}
	if tc.CollectedInfo.Age > 0 {
		ages = append(ages, ageMentionRe(tc.CollectedInfo.Age))
	}
	return ages, phrases
}

// ageMentionRe matches "<age> лет" or "<age> год(а)".
func ageMentionRe(age int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?:^|\D)%d\s*(?:год|лет)`, age))
}

func leaksSentence(sentence string, ages []*regexp.Regexp, phrases []string) bool {
	lower := normalize(sentence)
	for _, re := range ages {
		if re.MatchString(lower) {
			return true
		}
	}
	for _, p := range phrases {
		if utf8.RuneCountInString(p) >= 4 && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// RemoveProfileLeaks drops every sentence that quotes the persona's age,
// goals or health issues.
func (e *Engine) RemoveProfileLeaks(tc *model.TurnContext, text string) (string, bool) {
	ages, phrases := e.profileLeaks(tc)
	if len(ages) == 0 && len(phrases) == 0 {
		return text, false
	}
	var kept []string
	removed := false
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if leaksSentence(s, ages, phrases) {
			removed = true
			continue
		}
		kept = append(kept, strings.TrimSpace(s))
	}
	if !removed {
		return text, false
	}
	return strings.Join(kept, " "), true
}

// RepeatedObjections reports two or more objections among the last three
// user messages, the current one included.
func RepeatedObjections(tc *model.TurnContext) bool {
	texts := append(tc.State.UserTexts(recentUserTurns-1), tc.Text)
	return CountObjections(texts) >= objectionLimit
}

// Finalize runs a candidate from any source through the gates and guards and
// returns the reply that will be shown.
func (e *Engine) Finalize(tc *model.TurnContext, cand model.CandidateResponse) model.CandidateResponse {
	out := cand
	out.CollectedInfo = tc.CollectedInfo
	out.Kind = tc.Kind
	out.Notes = append([]string(nil), cand.Notes...)

	if text, found := ExtractMarker(out.Text); found {
		out.Text = text
		out.ShowCard = true
		out.Notes = append(out.Notes, NoteMarker)
	}

	if out.ShowCard && !e.PitchAllowed(tc) {
		out.ShowCard = false
		out.ProductID = ""
		out.Notes = append(out.Notes, NoteCardGated)
		policyWarn(tc, cand.Source).Msg("product card suppressed by pitch gate")
	}

	if !GreetingAllowed(tc) {
		if text, ok := StripGreeting(out.Text); ok {
			out.Text = text
			out.Notes = append(out.Notes, NoteGreeting)
			policyWarn(tc, cand.Source).Msg("repeated greeting stripped")
		}
	}

	if text, ok := e.RemoveProfileLeaks(tc, out.Text); ok {
		out.Text = text
		out.Notes = append(out.Notes, NoteProfileLeak)
		policyWarn(tc, cand.Source).Msg("profile data removed from reply")
	}

	if strings.TrimSpace(out.Text) == "" {
		if out.ShowCard {
			out.Text = e.pick(agreementPhrases)
		} else {
			out.Text = e.pick(questionVariants)
		}
		out.Notes = append(out.Notes, NoteEmptyReply)
	}

	recent := tc.State.AgentTexts(recentAgentTurns)
	if IsDuplicate(out.Text, recent) {
		policyWarn(tc, cand.Source).Str("duplicate", out.Text).Msg("duplicate reply substituted")
		out.Text = e.substituteDuplicate(recent)
		out.ShowCard = false
		out.ProductID = ""
		out.Notes = append(out.Notes, NoteDuplicate)
	}

	objections := RepeatedObjections(tc)
	if objections {
		policyWarn(tc, cand.Source).Msg("repeated objections, closing")
		out.Text = ClosingPhrase
		out.ShowCard = false
		out.ProductID = ""
		out.Notes = append(out.Notes, NoteObjections)
	}

	if out.ShowCard {
		if out.ProductID == "" {
			out.ProductID = e.ResolveProduct(tc)
		}
		if e.products != nil {
			if _, ok := e.products.Product(out.ProductID); !ok {
				out.ProductID = DefaultProductID
				out.Notes = append(out.Notes, NoteUnknownProduct)
			}
		}
	} else {
		out.ProductID = ""
	}

	out.HasGreeted = true
	out.Stage = NextStage(tc, out, objections)
	return out
}

func policyWarn(tc *model.TurnContext, src model.Source) *zerolog.Event {
	return logx.Warn().
		Str("session_id", tc.State.SessionID).
		Int("turn", tc.TurnsCount).
		Str("source", string(src))
}

// ResolveProduct picks the product for a card: a new user's goal first, then
// the most recent user message naming a symptom, then the persona's goals and
// issues.
func (e *Engine) ResolveProduct(tc *model.TurnContext) string {
	if isNewUser(tc) && tc.CollectedInfo.Goal != "" {
		return SelectProduct(tc.CollectedInfo.Goal)
	}
	texts := e.windowUserTexts(tc)
	for i := len(texts) - 1; i >= 0; i-- {
		if id, ok := MatchProduct(texts[i]); ok {
			return id
		}
	}
	if p := tc.Persona; p != nil {
		for _, s := range append(append([]string(nil), p.Goals...), p.Health.Issues...) {
			if id, ok := MatchProduct(s); ok {
				return id
			}
		}
	}
	return DefaultProductID
}
