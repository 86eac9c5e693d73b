package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSessionTTL is the lifetime of a session token
const DefaultSessionTTL = 7 * 24 * time.Hour

// MinSessionSecretLength is the shortest accepted HS256 signing secret
const MinSessionSecretLength = 32

// Config holds all application configuration
type Config struct {
	DatabaseURL           string
	Port                  string
	GoEnv                 string
	LogLevel              string
	LogFormat             string
	SessionSecret         string
	TokenIssuer           string
	TokenAudience         string
	SessionTTL            time.Duration
	RegistrationWhitelist []string
	AdminBillingEmail     string
	AppURL                string
	AllowedOrigins        []string
	AWSRegion             string
	AWSS3Bucket           string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	ResendAPIKey          string
	ResendBaseURL         string
	MailFrom              string
	RedisURL              string
	NotificationStream    string
	MQTTBrokerURL         string
	MQTTTopicPrefix       string
	NotificationQueueSize int

	// EnvFile is the .env file the values were read from, empty when only
	// the process environment was used
	EnvFile string
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first, then .env. In production
	// environment variables are set directly.
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		envFile = ".env"
		if err := godotenv.Load(); err != nil {
			envFile = ""
		}
	}

	config := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		Port:                  getEnv("PORT", "8080"),
		GoEnv:                 getEnv("GO_ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		SessionSecret:         getEnv("SESSION_SECRET", ""),
		TokenIssuer:           getEnv("TOKEN_ISSUER", "alphasafe-api"),
		TokenAudience:         getEnv("TOKEN_AUDIENCE", "alphasafe-web"),
		SessionTTL:            getDuration("SESSION_TTL", DefaultSessionTTL),
		RegistrationWhitelist: ParseWhitelist(getEnv("REGISTRATION_WHITELIST", "")),
		AdminBillingEmail:     strings.TrimSpace(getEnv("ADMIN_BILLING_EMAIL", "")),
		AppURL:                getEnv("APP_URL", "http://localhost:5173"),
		AllowedOrigins:        splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		AWSRegion:             getEnv("AWS_REGION", "eu-west-1"),
		AWSS3Bucket:           getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		ResendAPIKey:          getEnv("RESEND_API_KEY", ""),
		ResendBaseURL:         getEnv("RESEND_BASE_URL", "https://api.resend.com"),
		MailFrom:              getEnv("MAIL_FROM", "AlphaSafe <notificacoes@alphasafe.pt>"),
		RedisURL:              getEnv("REDIS_URL", ""),
		NotificationStream:    getEnv("NOTIFICATION_STREAM", "notifications"),
		MQTTBrokerURL:         getEnv("MQTT_BROKER_URL", ""),
		MQTTTopicPrefix:       getEnv("MQTT_TOPIC_PREFIX", "alphasafe/push"),
		NotificationQueueSize: getInt("NOTIFICATION_QUEUE_SIZE", 100),
		EnvFile:               envFile,
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	// Test runs sign their own tokens; every other environment must
	// supply a real secret
	if !c.IsTest() && len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", MinSessionSecretLength)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// GetDatabaseURL returns the database URL
func (c *Config) GetDatabaseURL() string {
	return c.DatabaseURL
}

// ParseWhitelist splits a comma-separated list of emails, trimming and
// lower-casing each entry and dropping empty ones
func ParseWhitelist(raw string) []string {
	var emails []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			emails = append(emails, entry)
		}
	}
	return emails
}

func splitList(raw string) []string {
	var values []string
	for _, entry := range strings.Split(raw, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			values = append(values, entry)
		}
	}
	return values
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
