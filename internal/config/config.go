// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// AIProvider selects the chat backend: "openrouter" or "stub".
	AIProvider        string `env:"AI_PROVIDER" envDefault:"openrouter"`
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterReferer string `env:"OPENROUTER_REFERER"`
	OpenRouterTitle   string `env:"OPENROUTER_TITLE" envDefault:"Excel Interviewer"`
	ChatModel         string `env:"CHAT_MODEL" envDefault:"google/gemini-flash-1.5"`
	ChatMaxTokens     int    `env:"CHAT_MAX_TOKENS" envDefault:"1500"`

	// Interview flow
	MaxQuestions       int `env:"MAX_QUESTIONS" envDefault:"5"`
	StartingDifficulty int `env:"STARTING_DIFFICULTY" envDefault:"2"`

	// Retry Configuration for generation/evaluation LLM calls
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`

	// HTTP surface
	MaxUploadMB           int64         `env:"MAX_UPLOAD_MB" envDefault:"10"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPRequestTimeout    time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"120s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"excel-interviewer"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// GetRetrySettings returns the retry attempts and base delay for LLM calls.
// In test environments the delay shrinks so suites run fast.
func (c Config) GetRetrySettings() (attempts int, baseDelay time.Duration) {
	if c.IsTest() {
		return c.RetryAttempts, 10 * time.Millisecond
	}
	return c.RetryAttempts, c.RetryBaseDelay
}
