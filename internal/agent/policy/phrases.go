package policy

// Phrase pools. Each turn picks one entry through the injected Picker.
var (
	greetings = []string{
		"Привет 👋",
		"Рад тебя видеть!",
		"Хэй, как настроение?",
		"Приветствую! 😊",
		"Здравствуй!",
	}

	newUserGreetings = []string{
		"Привет 👋 Рад знакомству!",
		"Хэй! Приятно познакомиться 😊",
		"Привет! Помогу подобрать что-то полезное.",
		"Привет 👋 Как настроение?",
		"Хэй! Рад помочь 😊",
	}

	empathyPhrases = []string{
		"Понимаю",
		"Понимаю, бывает 😕",
		"Знаю, каково это",
		"Да, непросто",
		"Понимаю, такое часто бывает",
		"Ох, понимаю 😌",
	}

	positiveResponses = []string{
		"Отлично 😊 Рад, что всё в порядке!",
		"Здорово слышать 👍",
		"Замечательно!",
		"Прекрасно! 😊",
		"Супер!",
	}

	agreementPhrases = []string{
		"Отлично 💪",
		"Супер! 😊",
		"Здорово!",
		"Прекрасно!",
		"Замечательно!",
		"Понял 😊",
	}

	questionVariants = []string{
		"Что беспокоит?",
		"С чем помочь?",
		"Что хочешь улучшить?",
		"Какая проблема?",
		"Над чем работаем?",
	}

	clarificationQuestions = []string{
		"Расскажи подробнее",
		"Когда именно это ощущаешь?",
		"Как давно началось?",
		"Насколько сильно беспокоит?",
		"В какое время суток хуже?",
		"Обычно утром или к вечеру?",
	}
)

const (
	ClosingPhrase     = "Всё понял! Обращайся 👋"
	PriceObjection    = "Понимаю. Есть вариант за 500₽?"
	TrustObjection    = "Уважаю. Обращайся!"
	BareNoReply       = "Понял. Другие вопросы?"
	NewUserOpening    = "Привет! 👋 Как тебя зовут?"
	AskNameAgain      = "Как можно к тебе обращаться?"
	duplicateFollowUp = "Что ещё важно?"
	positiveFollowUp  = "Если будет нужно — подскажу, чем помочь."
	tellMoreFollowUp  = "Расскажи подробнее?"
	offerFollowUp     = "Хочешь, подскажу решение?"
	pitchFollowUp     = "поможет. Берём?"
	askAgeFollowUp    = "Сколько тебе лет?"
	askAgeAgain       = "Сколько тебе лет? Напиши цифрой 🙂"
	askHowAreYou      = "Как дела?"
)

// openingTemplates greet an established persona when a session starts; %s is the first name.
var openingTemplates = []string{
	"Привет, %s! 👋 Как дела?",
	"Хэй, %s! Как самочувствие?",
	"Приветствую, %s! 😊 Как себя чувствуешь?",
}
