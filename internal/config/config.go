package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string
		Host string
		TLS  struct {
			Enabled  bool
			CertFile string
			KeyFile  string
		}
		Debug bool
	}
	Auth struct {
		// SessionSecret signs the short-lived submission credentials (JWT).
		SessionSecret string
		// AdminPassword is the shared secret expected in the X-Admin-Password header.
		AdminPassword string
	}
	Database struct {
		DSN string
	}
	Survey struct {
		// QuestionsFile optionally overrides the built-in question set.
		QuestionsFile string
	}
	AI struct {
		APIKey  string
		Model   string
		BaseURL string
	}
	Sentry struct {
		DSN string
	}
}

func Load() (*Config, error) {

	envStack := os.Getenv("ENV_STACK")

	if envStack != "" {
		filePath := "./env-files/.env." + envStack
		err := godotenv.Load(filePath)
		if err != nil {
			fmt.Printf("Error loading .env file: %s\n", err)
		}
	}

	c := &Config{}

	c.Server.Port = os.Getenv("SERVER_PORT")
	if c.Server.Port == "" {
		c.Server.Port = "1926"
	}

	c.Server.Host = os.Getenv("SERVER_HOST")
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}

	c.Server.Debug = os.Getenv("ENABLE_DEBUG_ENDPOINTS") == "true"

	// TLS Configuration
	useTLS := os.Getenv("USE_TLS")
	c.Server.TLS.Enabled = useTLS != "false" && useTLS != "0"
	c.Server.TLS.CertFile = "./certs/localhost.pem"
	c.Server.TLS.KeyFile = "./certs/localhost-key.pem"

	c.Auth.SessionSecret = os.Getenv("SESSION_SECRET")
	c.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	c.Database.DSN = os.Getenv("DATABASE_DSN")

	c.Survey.QuestionsFile = os.Getenv("SURVEY_QUESTIONS_FILE")

	c.AI.APIKey = os.Getenv("AI_API_KEY")
	c.AI.Model = os.Getenv("AI_MODEL")
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	c.AI.BaseURL = os.Getenv("AI_BASE_URL")
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.openai.com/v1"
	}

	c.Sentry.DSN = os.Getenv("SENTRY_DSN")

	return c, nil
}
