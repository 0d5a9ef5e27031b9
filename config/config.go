package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the service needs at startup. Components receive
// the values they need at construction; nothing reads the environment after
// Load returns.
type Config struct {
	Port        string `env:"PORT" envDefault:"3333"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	ClerkSecretKey string `env:"CLERK_SECRET_KEY,required"`

	PaystackSecretKey string `env:"PAYSTACK_SECRET_KEY"`
	PaystackBaseURL   string `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	FCMServiceAccountJSON string `env:"FCM_SERVICE_ACCOUNT_JSON"`
	FCMKeyFilePath        string `env:"FCM_KEY_FILE" envDefault:"./serviceAccountKey.json"`

	MetricsUser string `env:"METRICS_USER"`
	MetricsPass string `env:"METRICS_PASS"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
