package model

// ================ Config ================

type ConversationConfig struct {
	TTL      string `envconfig:"CONVERSATION_TTL" default:"15m"`
	MaxTurns int    `envconfig:"CONVERSATION_MAX_TURNS" default:"20"`
}

type PlanConfig struct {
	TTL        string `envconfig:"PLAN_TTL" default:"10m"`
	PreviewTTL string `envconfig:"PAYMENT_PREVIEW_TTL" default:"5m"`
}

type ProviderConfig struct {
	// Provider selects the primary completion backend: "gemini", "openai" or
	// "scripted". "auto" picks the first backend with credentials configured.
	Provider string `envconfig:"LLM_PROVIDER" default:"auto"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	Temperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.2"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"2000"`
}

type GatewayConfig struct {
	// RateLimitWindow is how far back failed operations are counted.
	RateLimitWindow string `envconfig:"RATE_LIMIT_WINDOW" default:"10m"`

	// RateLimitMaxFailures trips the limiter once exceeded inside the window.
	RateLimitMaxFailures int `envconfig:"RATE_LIMIT_MAX_FAILURES" default:"10"`
}
