package policy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

var (
	complaintRe = regexp.MustCompile(`плохо|стресс|тяжело|нет сил|беспоко|раздража|нерв`)
	wordRe      = regexp.MustCompile(`[\p{L}\p{N}-]+`)
	empathyRe   = regexp.MustCompile(`понима|каково это|непросто|бывает|сочувств|расскажи подробнее|когда именно|как давно|насколько сильно|в какое время|утром или|подскажу решение`)
)

var (
	objectionPhrases = []string{"не хочу", "дорого", "не верю"}
	// symptomNegations contain "нет" but describe a problem, not a refusal.
	symptomNegations = []string{"нет сил", "нет энергии"}
)

// normalize lowercases and trims s.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func words(lower string) []string {
	return wordRe.FindAllString(lower, -1)
}

// stripPunct trims punctuation and symbols from both ends, so "нет!" reads as "нет".
func stripPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// IsPositive reports a positive or all-good answer ("всё хорошо", "нормально", "в порядке", "норм").
func IsPositive(text string) bool {
	lower := normalize(text)
	if strings.Contains(lower, "не хорошо") || strings.Contains(lower, "нехорошо") ||
		strings.Contains(lower, "не нормально") || strings.Contains(lower, "не в порядке") {
		return false
	}
	return strings.Contains(lower, "хорошо") ||
		strings.Contains(lower, "нормально") ||
		strings.Contains(lower, "в порядке") ||
		stripPunct(lower) == "норм"
}

// IsBareNo reports a message that is just "нет".
func IsBareNo(text string) bool {
	return stripPunct(normalize(text)) == "нет"
}

// IsObjection reports whether text carries a negative, price or trust
// objection. "нет" counts only as a standalone word outside symptom phrases
// such as "нет сил".
func IsObjection(text string) bool {
	lower := normalize(text)
	for _, m := range objectionPhrases {
		if strings.Contains(lower, m) {
			return true
		}
	}
	for _, m := range symptomNegations {
		lower = strings.ReplaceAll(lower, m, " ")
	}
	for _, w := range words(lower) {
		if w == "нет" {
			return true
		}
	}
	return false
}

// CountObjections counts the texts that carry an objection.
func CountObjections(texts []string) int {
	n := 0
	for _, t := range texts {
		if IsObjection(t) {
			n++
		}
	}
	return n
}

// IsAgreement reports consent to a proposal: a standalone "да" or "ок", or
// "хочу", "покажи", "давай" not negated.
func IsAgreement(text string) bool {
	lower := normalize(text)
	if strings.Contains(lower, "не хочу") || strings.Contains(lower, "не надо") {
		return false
	}
	for _, w := range words(lower) {
		switch w {
		case "да", "ага", "ок", "окей", "конечно", "давай", "давайте", "хочу", "покажи", "покажите", "берём", "беру":
			return true
		}
	}
	return false
}

// HasSymptom reports whether text names a problem: a product category
// keyword or a general complaint.
func HasSymptom(text string) bool {
	lower := normalize(text)
	if _, ok := MatchProduct(lower); ok {
		return true
	}
	return complaintRe.MatchString(lower)
}

// IsEmpathetic reports whether an agent line shows empathy or asks a clarifying question.
func IsEmpathetic(agentText string) bool {
	return empathyRe.MatchString(normalize(agentText))
}

// Classify places the last user utterance in exactly one bucket.
func Classify(text string) model.ReplyKind {
	switch {
	case HasSymptom(text):
		return model.KindComplaint
	case IsPositive(text):
		return model.KindPositive
	case len(words(normalize(text))) <= 2:
		return model.KindAcknowledgment
	default:
		return model.KindPositive
	}
}
