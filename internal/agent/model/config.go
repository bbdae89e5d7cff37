package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	HistoryLimit int `envconfig:"CONVERSATION_HISTORY_LIMIT" default:"12"`
	// PurchaseMinExchanges is the number of completed user+assistant pairs required
	// before purchase language is treated as a closing signal.
	PurchaseMinExchanges int `envconfig:"CONVERSATION_PURCHASE_MIN_EXCHANGES" default:"3"`
}

type ClassifierConfig struct {
	MinSenderDigits int           `envconfig:"CLASSIFIER_MIN_SENDER_DIGITS" default:"10"`
	LoopThreshold   int           `envconfig:"CLASSIFIER_LOOP_THRESHOLD" default:"10"`
	LoopWindow      time.Duration `envconfig:"CLASSIFIER_LOOP_WINDOW" default:"5m"`
	TrackedSenders  int           `envconfig:"CLASSIFIER_TRACKED_SENDERS" default:"10000"`
}

type SearchConfig struct {
	MaxResults int `envconfig:"SEARCH_MAX_RESULTS" default:"5"`
}

type CatalogConfig struct {
	Path        string `envconfig:"CATALOG_PATH" default:"catalog.json"`
	LexiconPath string `envconfig:"LEXICON_PATH"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"800"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type ResponsePromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"tienda de equipos de defensa personal"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"Armeria Central"`
	Currency     string `envconfig:"PROMPT_CURRENCY" default:"COP"`
	Locale       string `envconfig:"PROMPT_LOCALE" default:"es-CO"`
	Apology      string `envconfig:"PROMPT_APOLOGY" default:"Disculpa, tuvimos un inconveniente procesando tu mensaje. Por favor intenta de nuevo en unos minutos."`
	Handoff      string `envconfig:"PROMPT_HANDOFF" default:"Te comunico con {agent} de {business}. En un momento te escribe por este chat."`
	NoAgents     string `envconfig:"PROMPT_NO_AGENTS" default:"En este momento no hay asesores disponibles. Te contactaremos apenas uno se libere."`
}

type RetryConfig struct {
	MaxAttempts    int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	InitialBackoff time.Duration `envconfig:"RETRY_INITIAL_BACKOFF" default:"1s"`
	MaxBackoff     time.Duration `envconfig:"RETRY_MAX_BACKOFF" default:"10s"`
	AttemptTimeout time.Duration `envconfig:"RETRY_ATTEMPT_TIMEOUT" default:"30s"`
}

type StoreConfig struct {
	Driver     string        `envconfig:"STORE_DRIVER" default:"redis"`
	SQLitePath string        `envconfig:"STORE_SQLITE_PATH" default:"data"`
	KeyPrefix  string        `envconfig:"STORE_KEY_PREFIX" default:"salesdesk:"`
	HistoryTTL time.Duration `envconfig:"STORE_HISTORY_TTL" default:"720h"`
}

type ServerConfig struct {
	Addr       string `envconfig:"SERVER_ADDR" default:"127.0.0.1:8080"`
	AdminToken string `envconfig:"SERVER_ADMIN_TOKEN"`
}
