package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL           time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	HistoryWindow int           `envconfig:"CONVERSATION_HISTORY_WINDOW" default:"20"`
	OpeningGreet  bool          `envconfig:"CONVERSATION_OPENING_GREETING" default:"true"`
	TypingPerChar time.Duration `envconfig:"CONVERSATION_TYPING_PER_CHAR" default:"30ms"`
	TypingMax     time.Duration `envconfig:"CONVERSATION_TYPING_MAX" default:"2s"`
	Store         string        `envconfig:"CONVERSATION_STORE" default:"memory"`
	RandomSeed    int64         `envconfig:"CONVERSATION_RANDOM_SEED" default:"0"`
}

// GeneratorConfig carries the sampling parameters sent on every remote call.
// Gemini ignores the two penalties.
type GeneratorConfig struct {
	Provider         string        `envconfig:"GENERATOR_PROVIDER" default:"openai"`
	Model            string        `envconfig:"GENERATOR_MODEL" default:"gpt-4o-mini"`
	MaxTokens        int           `envconfig:"GENERATOR_MAX_TOKENS" default:"200"`
	Temperature      float32       `envconfig:"GENERATOR_TEMPERATURE" default:"0.8"`
	TopP             float32       `envconfig:"GENERATOR_TOP_P" default:"0.9"`
	FrequencyPenalty float32       `envconfig:"GENERATOR_FREQUENCY_PENALTY" default:"0.6"`
	PresencePenalty  float32       `envconfig:"GENERATOR_PRESENCE_PENALTY" default:"0.6"`
	Timeout          time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"20s"`
	MaxRetries       int           `envconfig:"GENERATOR_MAX_RETRIES" default:"1"`

	// ThinkingBudget applies to Gemini only. 0 turns thinking off.
	ThinkingBudget int32 `envconfig:"GENERATOR_THINKING_BUDGET" default:"0"`
}

type ProviderCredentials struct {
	OpenAIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	GeminiKey     string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
}

type PromptConfig struct {
	StoreName string `envconfig:"PROMPT_STORE_NAME" default:"VitaShop"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)
