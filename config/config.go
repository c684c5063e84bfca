package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port string

	GradebookDir   string
	TemplateFile   string        // optional YAML cell template, built-in layout when empty
	MtimeTolerance time.Duration // clock skew allowed when comparing modification times

	DBDriver string // sqlite, postgres or mysql
	DBName   string // sqlite file when DBDriver is sqlite
	DBDSN    string

	GmailCredentialsFile string
	GmailTokenFile       string
	GmailQuery           string

	IngestSchedule string

	SendGridAPIKey  string
	ReportEmailFrom string
	ReportEmailTo   string
}

// LoadConfig builds the configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	cfg := &Config{
		Port: getEnv("PORT", "3000"),

		GradebookDir:   getEnv("GRADEBOOK_DIR", "gradebooks"),
		TemplateFile:   getEnv("TEMPLATE_FILE", ""),
		MtimeTolerance: getEnvDuration("MTIME_TOLERANCE", time.Second),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBName:   getEnv("DB_NAME", "gradebooks.db"),
		DBDSN:    getEnv("DB_DSN", ""),

		GmailCredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", "credentials.json"),
		GmailTokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
		GmailQuery:           getEnv("GMAIL_QUERY", "is:unread has:attachment"),

		IngestSchedule: getEnv("INGEST_SCHEDULE", "@every 15m"),

		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		ReportEmailFrom: getEnv("REPORT_EMAIL_FROM", "noreply@localhost"),
		ReportEmailTo:   getEnv("REPORT_EMAIL_TO", ""),
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDSN == "" {
		log.Printf("Warning: DB_DRIVER=%s without DB_DSN. Connection will most likely fail.", cfg.DBDriver)
	}
	if cfg.MtimeTolerance <= 0 {
		log.Println("Warning: MTIME_TOLERANCE must be positive. Falling back to 1s.")
		cfg.MtimeTolerance = time.Second
	}
	return cfg
}

// ReportingEnabled reports whether run summaries should be emailed.
func (c *Config) ReportingEnabled() bool {
	return c.SendGridAPIKey != "" && c.ReportEmailTo != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

// getEnvDuration accepts Go durations ("1500ms") or plain seconds ("2").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return time.Duration(getEnvInt(key, int(defaultValue/time.Second))) * time.Second
}
