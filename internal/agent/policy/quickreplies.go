package policy

import "github.com/vitachat-poc-v1/server/internal/agent/model"

// QuickReplies suggests canned answers for the next user turn.
func QuickReplies(state *model.ConversationState, persona *model.Persona) []string {
	if persona == nil {
		return nil
	}
	if persona.IsNewUser() {
		switch NextOnboardingField(state.CollectedInfo) {
		case FieldName:
			return []string{"Иван", "Мария", "Алексей", "Анна"}
		case FieldAge:
			return []string{"25", "30", "35", "40"}
		case FieldGoal:
			return []string{"Устаю быстро", "Плохо сплю", "Часто болею", "Суставы болят"}
		default:
			return []string{"Да", "Покажи", "Хочу", "Расскажи подробнее"}
		}
	}

	switch state.Stage {
	case model.StageGreeting, "":
		if persona.Age < 30 {
			return []string{"Отлично!", "Устаю иногда", "Хочу больше энергии", "Нужна поддержка"}
		}
		return []string{"Хорошо!", "Есть проблемы", "Хочу здоровее", "Часто устаю"}
	case model.StageProducts:
		return []string{"Да", "Покажи", "Хочу", "Нет"}
	case model.StageObjections:
		return []string{"Дорого", "Не верю", "Не хочу", "Нет"}
	default:
		return []string{"Да", "Нет", "Расскажи", "Интересно"}
	}
}
