package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

func TestIsDuplicate(t *testing.T) {
	long := "Понимаю, такое часто бывает. Когда сильнее чувствуешь усталость?"

	assert.True(t, IsDuplicate(long, []string{"a", long}))
	assert.True(t, IsDuplicate("  "+strings.ToUpper(long), []string{long}), "case and outer whitespace are ignored")

	sameHead := string([]rune(long)[:50]) + " и что-то совсем другое"
	assert.True(t, IsDuplicate(sameHead, []string{long}), "only the first 50 characters count")

	assert.False(t, IsDuplicate("Понял.", []string{"Понял."}), "short prefixes never count")
	assert.False(t, IsDuplicate("Супер! 😊", []string{"Супер! 😊"}))
	assert.False(t, IsDuplicate(long, nil))
	assert.False(t, IsDuplicate("Что беспокоит сегодня?", []string{"Что хочешь улучшить?"}))
}

func TestExtractMarker(t *testing.T) {
	text, ok := ExtractMarker("Советую Energy+ Active {{SHOW_PRODUCT_CARD}}")
	assert.True(t, ok)
	assert.Equal(t, "Советую Energy+ Active", text)

	text, ok = ExtractMarker("Вот {{SHOW_PRODUCT_CARD}} что подойдёт {{SHOW_PRODUCT_CARD}}.")
	assert.True(t, ok)
	assert.Equal(t, "Вот что подойдёт.", text)

	text, ok = ExtractMarker("Без карточки")
	assert.False(t, ok)
	assert.Equal(t, "Без карточки", text)
}

func TestStripGreeting(t *testing.T) {
	tests := []struct {
		in, want string
		found    bool
	}{
		{"Привет, Анна! Как дела?", "Как дела?", true},
		{"Привет 👋 Рад знакомству! Что хочешь улучшить?", "Рад знакомству! Что хочешь улучшить?", true},
		{"Хэй, как настроение?", "Как настроение?", true},
		{"Здравствуйте! Чем помочь?", "Чем помочь?", true},
		{"Понимаю, бывает 😕", "Понимаю, бывает 😕", false},
	}
	for _, tt := range tests {
		got, found := StripGreeting(tt.in)
		assert.Equal(t, tt.found, found, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFinalizeSubstitutesDuplicate(t *testing.T) {
	e := newTestEngine()
	anna := mustPersona(t, "1")
	prev := "Понимаю, такое часто бывает. Когда сильнее устаёшь?"
	state := stateWith("1",
		"agent", "Привет, Анна! 👋 Как дела?",
		"user", "устаю",
		"agent", prev,
	)

	tc := e.Begin(state, anna, "да, вечером")
	out := e.Finalize(tc, model.CandidateResponse{Text: prev, Source: model.SourceRemote})

	assert.Equal(t, "Понимаю! Что ещё важно?", out.Text)
	assert.Contains(t, out.Notes, NoteDuplicate)
	assert.True(t, out.HasGreeted)
}

func TestFinalizeDuplicateSubstituteAvoidsRepeatingItself(t *testing.T) {
	e := newTestEngine()
	state := stateWith("1",
		"agent", "Понимаю! Что ещё важно?",
		"user", "ну",
		"agent", "Здесь был длинный повтор одного и того же ответа",
	)

	tc := e.Begin(state, mustPersona(t, "1"), "ну")
	out := e.Finalize(tc, model.CandidateResponse{Text: "Здесь был длинный повтор одного и того же ответа"})

	assert.Equal(t, "Понимаю, бывает 😕! Что ещё важно?", out.Text)
}

func TestFinalizeClosesOnRepeatedObjectionsWhateverTheCandidate(t *testing.T) {
	e := newTestEngine()
	anna := mustPersona(t, "1")
	state := stateWith("1",
		"agent", "Привет, Анна! 👋 Как дела?",
		"user", "дорого",
		"agent", PriceObjection,
		"user", "нет",
		"agent", "Понял. Другие вопросы?",
	)

	tc := e.Begin(state, anna, "не верю")
	out := e.Finalize(tc, model.CandidateResponse{
		Text:   "Energy+ Active точно поможет! {{SHOW_PRODUCT_CARD}}",
		Source: model.SourceRemote,
	})

	assert.Equal(t, ClosingPhrase, out.Text)
	assert.False(t, out.ShowCard)
	assert.Empty(t, out.ProductID)
	assert.Equal(t, model.StageObjections, out.Stage)
}

func TestFinalizeGatesCardBeforeThirdTurn(t *testing.T) {
	e := newTestEngine()
	anna := mustPersona(t, "1")
	state := stateWith("1", "agent", "Понимаю, бывает 😕", "user", "устаю")

	tc := e.Begin(state, anna, "очень устаю")
	require.Equal(t, 2, tc.TurnsCount)
	out := e.Finalize(tc, model.CandidateResponse{Text: "Energy+ Active {{SHOW_PRODUCT_CARD}}"})

	assert.False(t, out.ShowCard)
	assert.Equal(t, "Energy+ Active", out.Text)
	assert.Contains(t, out.Notes, NoteCardGated)
}

func TestFinalizeResolvesProductFromRecentComplaint(t *testing.T) {
	e := newTestEngine()
	anna := mustPersona(t, "1")
	state := stateWith("1",
		"agent", "Привет, Анна! 👋 Как дела?",
		"user", "так себе",
		"agent", "Понимаю. Расскажи подробнее?",
		"user", "болят колени после бега",
		"agent", "Ох, понимаю 😌 Как давно началось?",
	)

	tc := e.Begin(state, anna, "пару недель, покажи что есть")
	require.Equal(t, 3, tc.TurnsCount)
	out := e.Finalize(tc, model.CandidateResponse{Text: "Есть хороший вариант {{SHOW_PRODUCT_CARD}}"})

	require.True(t, out.ShowCard)
	assert.Equal(t, "joint-flex", out.ProductID)
	assert.Equal(t, model.StageProducts, out.Stage)
}

func TestFinalizeStripsRepeatedGreetingAndProfileData(t *testing.T) {
	e := newTestEngine()
	anna := mustPersona(t, "1")
	state := stateWith("1", "agent", "Привет, Анна! 👋 Как дела?")

	tc := e.Begin(state, anna, "нормально")
	out := e.Finalize(tc, model.CandidateResponse{Text: "Привет, Анна! Вижу, тебе 28 лет. Как проходит день?"})

	assert.Equal(t, "Как проходит день?", out.Text)
	assert.Contains(t, out.Notes, NoteGreeting)
	assert.Contains(t, out.Notes, NoteProfileLeak)
}

func TestProfileDataTheUserSaidIsNotALeak(t *testing.T) {
	e := newTestEngine()
	elena := mustPersona(t, "3")
	state := stateWith("3", "agent", "Приветствую, Елена! 😊 Как себя чувствуешь?")

	tc := e.Begin(state, elena, "стресс замучил")
	text, removed := e.RemoveProfileLeaks(tc, "Понимаю, стресс выматывает. Когда сильнее?")
	assert.False(t, removed)
	assert.Equal(t, "Понимаю, стресс выматывает. Когда сильнее?", text)

	text, removed = e.RemoveProfileLeaks(tc, "Твоя цель — улучшение сна. Когда сильнее?")
	assert.True(t, removed)
	assert.Equal(t, "Когда сильнее?", text)
}

func TestFinalizeReplacesEmptyReply(t *testing.T) {
	e := newTestEngine()
	state := stateWith("1", "agent", "Привет, Анна! 👋 Как дела?")

	tc := e.Begin(state, mustPersona(t, "1"), "ок")
	out := e.Finalize(tc, model.CandidateResponse{Text: "Привет!"})

	assert.Equal(t, "Что беспокоит?", out.Text)
	assert.Contains(t, out.Notes, NoteEmptyReply)
}
