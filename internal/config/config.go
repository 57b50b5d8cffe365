// Package config provides environment configuration for the gateway.
package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultSystemPrompt is the system prompt given to sessions created
// without an override.
const DefaultSystemPrompt = "You are a helpful assistant. Answer from the user's documents when a search tool is available, and cite the snippets you used."

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// LLM settings
	AnthropicAPIKey     string
	OpenAIAPIKey        string
	DefaultLLM          string
	MaxCompletionTokens int

	// Orchestration settings
	SystemPrompt string
	MaxToolCalls int
	ToolTimeout  time.Duration

	// Search service
	SearchServiceURL     string
	SearchServiceTimeout time.Duration

	// WebSocket settings
	WSReadLimit    int64
	WSPingInterval time.Duration
	WSWriteTimeout time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:          getEnv("DEFAULT_LLM", "anthropic"),
		MaxCompletionTokens: getIntEnv("MAX_COMPLETION_TOKENS", 4096),

		// Orchestration
		SystemPrompt: getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		MaxToolCalls: getIntEnv("MAX_TOOL_CALLS", 5),
		ToolTimeout:  getDurationEnv("TOOL_TIMEOUT", 30*time.Second),

		// Search service
		SearchServiceURL:     getEnv("SEARCH_SERVICE_URL", "http://localhost:8090"),
		SearchServiceTimeout: getDurationEnv("SEARCH_SERVICE_TIMEOUT", 20*time.Second),

		// WebSocket
		WSReadLimit:    int64(getIntEnv("WS_READ_LIMIT", 128*1024)),
		WSPingInterval: getDurationEnv("WS_PING_INTERVAL", 30*time.Second),
		WSWriteTimeout: getDurationEnv("WS_WRITE_TIMEOUT", 10*time.Second),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
