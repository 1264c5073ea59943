package policy

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

const (
	FieldName = "name"
	FieldAge  = "age"
	FieldGoal = "goal"

	minAge = 1
	maxAge = 120
)

var (
	nameIntroRe = []*regexp.Regexp{
		regexp.MustCompile(`меня зовут\s+([\p{L}-]+)`),
		regexp.MustCompile(`(?:^|[^\p{L}])я\s+([\p{L}-]+)`),
		regexp.MustCompile(`зовут\s+([\p{L}-]+)`),
		regexp.MustCompile(`(?:^|[^\p{L}])это\s+([\p{L}-]+)`),
	}
	ageRe = regexp.MustCompile(`\d+`)
)

// notNames are words a user types before or instead of a name.
var notNames = map[string]bool{
	"привет": true, "приветик": true, "здравствуй": true, "здравствуйте": true,
	"хай": true, "хэй": true, "добрый": true, "день": true, "вечер": true, "утро": true,
	"hello": true, "hi": true, "hey": true, "да": true, "нет": true, "ок": true,
	"меня": true, "зовут": true, "я": true, "это": true, "мое": true, "моё": true, "имя": true,
	"а": true, "ну": true, "так": true, "вот": true, "и": true, "вам": true, "тебе": true,
}

// Collect fills at most one missing onboarding field from text, in the order
// name, age, goal. It returns the updated info and the field it set, or "".
func Collect(info model.CollectedInfo, text string) (model.CollectedInfo, string) {
	switch {
	case info.Name == "":
		if name := ExtractName(text); name != "" {
			info.Name = name
			return info, FieldName
		}
	case info.Age == 0:
		if age, ok := ExtractAge(text); ok {
			info.Age = age
			return info, FieldAge
		}
	case info.Goal == "":
		if goal := strings.TrimSpace(text); goal != "" {
			info.Goal = goal
			return info, FieldGoal
		}
	}
	return info, ""
}

// ExtractName finds a first name in a free-form introduction.
func ExtractName(text string) string {
	lower := normalize(text)
	for _, re := range nameIntroRe {
		if m := re.FindStringSubmatch(lower); m != nil && !notNames[m[1]] {
			return titleCase(m[1])
		}
	}
	for _, w := range words(lower) {
		if notNames[w] || !isLetters(w) {
			continue
		}
		return titleCase(w)
	}
	return ""
}

// ExtractAge returns the first integer in text when it is a plausible age.
func ExtractAge(text string) (int, bool) {
	m := ageRe.FindString(text)
	if m == "" {
		return 0, false
	}
	age, err := strconv.Atoi(m)
	if err != nil || age < minAge || age > maxAge {
		return 0, false
	}
	return age, true
}

// NextOnboardingField names the field onboarding asks for next, or "" when complete.
func NextOnboardingField(info model.CollectedInfo) string {
	switch {
	case info.Name == "":
		return FieldName
	case info.Age == 0:
		return FieldAge
	case info.Goal == "":
		return FieldGoal
	}
	return ""
}

func isLetters(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) && r != '-' {
			return false
		}
	}
	return w != ""
}

func titleCase(w string) string {
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
