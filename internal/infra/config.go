package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// External collaborators. The webhook endpoints trigger and cancel work on
	// the workflow server; the upload endpoint hosts user reference images.
	AvatarWebhookURL string
	VideoWebhookURL  string
	EditWebhookURL   string
	CancelWebhookURL string
	WebhookTimeout   time.Duration
	UploadURL        string
	UploadAPIKey     string

	// Monitor tuning. Poll intervals and clock-skew tolerances differ per job
	// kind; timeouts are soft upper bounds after which the user is pointed at
	// history instead of being shown a failure.
	AvatarPollInterval time.Duration
	VideoPollInterval  time.Duration
	DeepScanInterval   time.Duration
	AvatarScanSkew     time.Duration
	VideoScanSkew      time.Duration
	EditScanSkew       time.Duration
	AvatarTimeout      time.Duration
	VideoTimeout       time.Duration

	StateDir        string
	GuestDailyQuota int

	GeoIPDBPath    string
	DefaultLocale  string
	AllowedOrigins []string

	HTTPReadTimeout       time.Duration
	HTTPReadHeaderTimeout time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
	RateLimitPerMin       int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AvatarWebhookURL: getEnv("AVATAR_WEBHOOK_URL", "https://n8n.develotex.io/webhook/generate-flux-image"),
		VideoWebhookURL:  getEnv("VIDEO_WEBHOOK_URL", "https://n8n.develotex.io/webhook/generate-video"),
		EditWebhookURL:   getEnv("EDIT_WEBHOOK_URL", "https://n8n.develotex.io/webhook/edit-image"),
		CancelWebhookURL: getEnv("CANCEL_WEBHOOK_URL", "https://n8n.develotex.io/webhook/cancel-generation"),
		WebhookTimeout:   getEnvDuration("WEBHOOK_TIMEOUT", 4*time.Minute),
		UploadURL:        getEnv("UPLOAD_URL", "https://api.imgbb.com/1/upload"),
		UploadAPIKey:     os.Getenv("UPLOAD_API_KEY"),

		AvatarPollInterval: getEnvDuration("AVATAR_POLL_INTERVAL", 2*time.Second),
		VideoPollInterval:  getEnvDuration("VIDEO_POLL_INTERVAL", 3*time.Second),
		DeepScanInterval:   getEnvDuration("DEEP_SCAN_INTERVAL", 5*time.Second),
		AvatarScanSkew:     getEnvDuration("AVATAR_SCAN_SKEW", 5*time.Second),
		VideoScanSkew:      getEnvDuration("VIDEO_SCAN_SKEW", 30*time.Second),
		EditScanSkew:       getEnvDuration("EDIT_SCAN_SKEW", 60*time.Second),
		AvatarTimeout:      getEnvDuration("AVATAR_TIMEOUT", 10*time.Minute),
		VideoTimeout:       getEnvDuration("VIDEO_TIMEOUT", 20*time.Minute),

		StateDir:        getEnv("STATE_DIR", defaultStateDir()),
		GuestDailyQuota: getEnvInt("GUEST_DAILY_QUOTA", 5),

		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "en"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPReadHeaderTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "infinity-studio")
	}
	return ".infinity-studio"
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
