package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// WhatsApp gateway (Twilio WhatsApp channel)
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWhatsAppFrom  string
	WebhookSharedToken  string
	AdminAuthSecret     string
	DefaultCountryCode  string
	OutboundSendTimeout time.Duration

	// LLM collaborator
	OpenAIAPIKey      string
	OpenAIModel       string
	LLMTimeout        time.Duration
	LLMMaxTokens      int
	KeywordConfidence float64

	// Conversation processing
	TurnPartitions   int
	TurnBufferSize   int
	DedupTTL         time.Duration
	ContextIdleHours int
	IdleSweepEvery   time.Duration

	// Scheduled delivery sweep
	SweepInterval  time.Duration
	SweepBatchSize int
	InterSendDelay time.Duration

	// Availability grid
	BusinessName  string
	BusinessOpen  string
	BusinessClose string
	SlotMinutes   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom:  getEnv("TWILIO_WHATSAPP_FROM", ""),
		WebhookSharedToken:  getEnv("WEBHOOK_SHARED_TOKEN", ""),
		AdminAuthSecret:     getEnv("ADMIN_AUTH_SECRET", ""),
		DefaultCountryCode:  getEnv("DEFAULT_COUNTRY_CODE", "55"),
		OutboundSendTimeout: getEnvAsDuration("OUTBOUND_SEND_TIMEOUT", 15*time.Second),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		LLMMaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 400),
		KeywordConfidence: getEnvAsFloat("KEYWORD_CONFIDENCE_THRESHOLD", 0.6),

		TurnPartitions:   getEnvAsInt("TURN_PARTITIONS", 8),
		TurnBufferSize:   getEnvAsInt("TURN_BUFFER_SIZE", 64),
		DedupTTL:         getEnvAsDuration("DEDUP_TTL", 6*time.Hour),
		ContextIdleHours: getEnvAsInt("CONTEXT_IDLE_HOURS", 24),
		IdleSweepEvery:   getEnvAsDuration("IDLE_SWEEP_INTERVAL", 1*time.Hour),

		SweepInterval:  getEnvAsDuration("DELIVERY_SWEEP_INTERVAL", 5*time.Minute),
		SweepBatchSize: getEnvAsInt("DELIVERY_SWEEP_BATCH", 50),
		InterSendDelay: getEnvAsDuration("DELIVERY_INTER_SEND_DELAY", 500*time.Millisecond),

		BusinessName:  getEnv("BUSINESS_NAME", "nosso salão"),
		BusinessOpen:  getEnv("BUSINESS_OPEN", "08:00"),
		BusinessClose: getEnv("BUSINESS_CLOSE", "18:00"),
		SlotMinutes:   getEnvAsInt("SLOT_MINUTES", 30),
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
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
