package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	LogFormat      string
	UseMemoryQueue bool
	WorkerCount    int
	JobTimeout     time.Duration

	// WhatsApp Cloud API
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAPIVersion    string
	WhatsAppBaseURL       string
	WhatsAppAppSecret     string
	WebhookVerifyToken    string
	WebhookRateLimit      float64
	WebhookRateBurst      int

	// Google Sheets
	SheetsSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	AppointmentSheet      string

	// Answer Service
	GeminiAPIKey   string
	GeminiModel    string
	BedrockModelID string
	AnswerTimeout  time.Duration

	// Failure policies
	SinkFailurePolicy   string
	AnswerFailurePolicy string

	// Conversation state
	ConversationTTL time.Duration
	SweepSchedule   string

	// Webhook dedupe
	DedupeBackend        string
	DedupeRetention      time.Duration
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisTLS             bool
	ProcessedEventsTable string

	// AWS
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	ConversationQueueURL string

	// Lead notifications
	LeadEmailRecipients []string
	EmailProvider       string
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	LeadEmailReplyTo    string
	SESFromEmail        string
	SESConfigurationSet string
	LeadArchiveBucket   string
	LeadArchivePrefix   string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		JobTimeout:     getEnvAsDuration("JOB_TIMEOUT", 60*time.Second),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAPIVersion:    getEnv("WHATSAPP_API_VERSION", "v21.0"),
		WhatsAppBaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
		WebhookVerifyToken:    getEnv("WEBHOOK_VERIFY_TOKEN", ""),
		WebhookRateLimit:      getEnvAsFloat("WEBHOOK_RATE_LIMIT", 20),
		WebhookRateBurst:      getEnvAsInt("WEBHOOK_RATE_BURST", 40),

		SheetsSpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		AppointmentSheet:      getEnv("APPOINTMENT_SHEET", "Citas"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		AnswerTimeout:  getEnvAsDuration("ANSWER_TIMEOUT", 20*time.Second),

		SinkFailurePolicy:   getEnv("SINK_FAILURE_POLICY", "best_effort"),
		AnswerFailurePolicy: getEnv("ANSWER_FAILURE_POLICY", "notify_user"),

		ConversationTTL: getEnvAsDuration("CONVERSATION_TTL", 0),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "@every 5m"),

		DedupeBackend:        strings.ToLower(strings.TrimSpace(getEnv("DEDUPE_BACKEND", "memory"))),
		DedupeRetention:      getEnvAsDuration("DEDUPE_RETENTION", 72*time.Hour),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisAddr:            getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		ProcessedEventsTable: getEnv("PROCESSED_EVENTS_TABLE", "processed_events"),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),

		LeadEmailRecipients: getEnvAsList("LEAD_EMAIL_RECIPIENTS"),
		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "PremiumCar"),
		LeadEmailReplyTo:    getEnv("LEAD_EMAIL_REPLY_TO", ""),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),
		LeadArchiveBucket:   getEnv("LEAD_ARCHIVE_BUCKET", ""),
		LeadArchivePrefix:   getEnv("LEAD_ARCHIVE_PREFIX", "leads/v1"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
