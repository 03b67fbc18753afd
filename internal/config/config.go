package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Signature modes for requests that carry no signature headers
const (
	SignatureModeLenient = "lenient" // let unsigned requests through
	SignatureModeStrict  = "strict"  // reject unsigned requests
)

// Config holds all application configuration
type Config struct {
	Port     string
	LogLevel string

	SlackAPIURL        string
	SlackBotToken      string
	SlackSigningSecret string
	SlackBirdChannelID string // the single channel whose file shares are analyzed
	SignatureMode      string

	InferenceTransport   string // "lambda" or "http"
	InferenceFunction    string
	InferenceRegion      string
	InferenceURL         string
	InferenceUnwrapDepth int
	InferenceTimeout     time.Duration

	// Feedback database
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBName      string
	DBUser      string
	DBPassword  string
	DBSSLMode   string

	// Feedback events (optional)
	FeedbackAMQPURL      string
	FeedbackAMQPExchange string

	MockModelVersion string
}

// LoadEnv loads .env files for local development. It is a no-op inside Lambda.
func LoadEnv(logger logrus.FieldLogger) {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return
	}
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			logger.WithError(err).Warnf("Failed to load %s", file)
			continue
		}
		logger.Debugf("Loaded env file %s", file)
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	transport := getEnv("INFERENCE_TRANSPORT", "lambda")
	defaultDepth := 2
	if transport == "http" {
		defaultDepth = 1
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SlackAPIURL:        getEnv("SLACK_API_URL", "https://slack.com/api"),
		SlackBotToken:      getEnv("SLACK_BOT_TOKEN", ""),
		SlackSigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		SlackBirdChannelID: getEnv("SLACK_BIRD_CHANNEL_ID", "C09JDQ384FQ"),
		SignatureMode:      strings.ToLower(getEnv("SIGNATURE_MODE", SignatureModeLenient)),

		InferenceTransport:   transport,
		InferenceFunction:    getEnv("AI_LAMBDA_NAME", "ai_handler"),
		InferenceRegion:      getEnv("AWS_REGION", "us-west-1"),
		InferenceURL:         getEnv("INFERENCE_URL", ""),
		InferenceUnwrapDepth: getEnvInt("INFERENCE_UNWRAP_DEPTH", defaultDepth),
		InferenceTimeout:     getEnvDuration("INFERENCE_TIMEOUT", 25*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("RDS_HOST", ""),
		DBPort:      getEnvInt("RDS_PORT", 5432),
		DBName:      getEnv("DB_NAME", "audubon_feedback"),
		DBUser:      getEnv("DB_USER", ""),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBSSLMode:   getEnv("DB_SSLMODE", "require"),

		FeedbackAMQPURL:      getEnv("FEEDBACK_AMQP_URL", ""),
		FeedbackAMQPExchange: getEnv("FEEDBACK_AMQP_EXCHANGE", "birdwatch.feedback"),

		MockModelVersion: getEnv("MOCK_MODEL_VERSION", "v4.2.2-alpha"),
	}
}

// Validate reports configuration that makes the service unusable
func (c *Config) Validate() error {
	var problems []string
	if c.SlackSigningSecret == "" {
		problems = append(problems, "SLACK_SIGNING_SECRET is not set")
	}
	if c.SlackBotToken == "" {
		problems = append(problems, "SLACK_BOT_TOKEN is not set")
	}
	if c.SignatureMode != SignatureModeLenient && c.SignatureMode != SignatureModeStrict {
		problems = append(problems, fmt.Sprintf("SIGNATURE_MODE %q is not one of lenient, strict", c.SignatureMode))
	}
	if c.InferenceUnwrapDepth < 1 {
		problems = append(problems, "INFERENCE_UNWRAP_DEPTH must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// FeedbackDSN returns the connection string of the feedback database
func (c *Config) FeedbackDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBHost == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBUser != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an int environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
