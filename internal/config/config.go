package config

import (
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// ExtractionConfig controls the PDF text-extraction pipeline.
//
// OCRThreshold is the average characters-per-page below which a document is
// treated as scanned and routed through OCR. The default of 50 is a heuristic
// for "effectively no text layer", not a fact about PDFs in general, which is
// why it is configurable. OCRDPI trades recognition quality against time:
// lower DPI degrades recognition, higher DPI grows processing roughly
// quadratically.
type ExtractionConfig struct {
	OCREnabled      bool
	OCRThreshold    float64
	OCRDPI          int
	OCRLanguages    []string
	OCRFallbackLang string
}

// OpenAIConfig holds settings for the chat-completion summarizer.
// BaseURL is optional; it exists so tests and proxies can redirect calls.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	MaxPromptChars int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost    string
	Port       string
	Database   DatabaseConfig
	Extraction ExtractionConfig
	OpenAI     OpenAIConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Extraction: ExtractionConfig{
			OCREnabled:      getEnvBool("OCR_ENABLED", true),
			OCRThreshold:    getEnvFloat("OCR_THRESHOLD_CHARS_PER_PAGE", 50),
			OCRDPI:          getEnvInt("OCR_DPI", 300),
			OCRLanguages:    getEnvList("OCR_LANGUAGES", "spa,eng"),
			OCRFallbackLang: getEnv("OCR_FALLBACK_LANGUAGE", "eng"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4.1-nano-2025-04-14"),
			Temperature:    getEnvFloat("OPENAI_TEMPERATURE", 0.1),
			MaxTokens:      getEnvInt("OPENAI_MAX_TOKENS", 1500),
			MaxPromptChars: getEnvInt("OPENAI_MAX_PROMPT_CHARS", 1500000),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvList splits a comma-separated env value, dropping empty entries.
func getEnvList(key, def string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
