package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	InboxDir  string
	OutputDir string

	LogLevel  string
	LogFormat string

	APIBaseURL     string
	APIToken       string
	APIRateLimitRS int
	APITimeoutMs   int
	APIMaxRetries  int

	GCodeScanLines       int
	GramsPerMeter        float64
	EmptyThresholdGrams  float64
	AutoSelectConfidence string
	MaxArchiveEntryBytes int64

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ListenerProvider     string
	ListenerLabel        string
	ListenerIntervalSec  int
	ListenerFetchMax     int
	ListenerProcessBatch int
	ListenerAutoExport   bool
	ListenerLockPath     string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "spooltracker.db")),
		InboxDir:  getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		APIBaseURL:     getEnv("SPOOLTRACKER_API_BASE_URL", "http://localhost:8080"),
		APIToken:       getEnv("SPOOLTRACKER_API_TOKEN", ""),
		APIRateLimitRS: getEnvInt("SPOOLTRACKER_RATE_LIMIT_RPS", 5),
		APITimeoutMs:   getEnvInt("SPOOLTRACKER_TIMEOUT_MS", 30000),
		APIMaxRetries:  getEnvInt("SPOOLTRACKER_MAX_RETRIES", 3),

		GCodeScanLines:       getEnvInt("GCODE_SCAN_LINES", 1000),
		GramsPerMeter:        getEnvFloat("GRAMS_PER_METER", 3),
		EmptyThresholdGrams:  getEnvFloat("EMPTY_THRESHOLD_GRAMS", 50),
		AutoSelectConfidence: strings.ToLower(getEnv("AUTO_SELECT_CONFIDENCE", "low")),
		MaxArchiveEntryBytes: int64(getEnvInt("MAX_ARCHIVE_ENTRY_MB", 64)) << 20,

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ListenerProvider:     getEnv("LISTENER_PROVIDER", "imap"),
		ListenerLabel:        getEnv("LISTENER_LABEL", "INBOX"),
		ListenerIntervalSec:  getEnvInt("LISTENER_INTERVAL_SEC", 60),
		ListenerFetchMax:     getEnvInt("LISTENER_FETCH_MAX", 20),
		ListenerProcessBatch: getEnvInt("LISTENER_PROCESS_BATCH", 20),
		ListenerAutoExport:   getEnvBool("LISTENER_AUTO_EXPORT", false),
		ListenerLockPath:     getEnv("LISTENER_LOCK_PATH", filepath.Join(cwd, "data", "listener.lock")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) validate() error {
	if c.GCodeScanLines <= 0 {
		return fmt.Errorf("GCODE_SCAN_LINES must be positive, got %d", c.GCodeScanLines)
	}
	if c.GramsPerMeter <= 0 {
		return fmt.Errorf("GRAMS_PER_METER must be positive, got %g", c.GramsPerMeter)
	}
	switch c.AutoSelectConfidence {
	case "low", "medium", "high", "never":
	default:
		return fmt.Errorf("AUTO_SELECT_CONFIDENCE: unsupported value %q", c.AutoSelectConfidence)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
