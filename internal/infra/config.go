package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv               string
	Port                 string
	StoreDriver          string
	DatabaseURL          string
	DBMaxConns           int
	MongoURL             string
	MongoDatabase        string
	RedisURL             string
	JWTSecret            string
	CORSAllowedOrigins   []string
	GeoIPDBPath          string
	UploadDir            string
	MaxUploadBytes       int64
	PinataAPIKey         string
	PinataSecretKey      string
	PinataBaseURL        string
	PinataGatewayURL     string
	PostmarkServerToken  string
	PostmarkAccountToken string
	MailSenderEmail      string
	MailSenderName       string
	ContactReceiver      string
	SiteName             string
	PlanLimits           string
	HTTPReadTimeout      time.Duration
	HTTPWriteTimeout     time.Duration
	HTTPIdleTimeout      time.Duration
	UpstreamTimeout      time.Duration
	RateLimitPerMin      int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "3000"),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBMaxConns:    getEnvInt("DB_MAX_CONNS", 20),
		MongoURL:      os.Getenv("MONGODB_URL"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "gateway"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
			"https://endlessforge.com",
			"https://endless-forge-web.web.app",
			"https://endless-forge-web.firebaseapp.com",
		}),
		GeoIPDBPath:          os.Getenv("GEOIP_DB_PATH"),
		UploadDir:            getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		PinataAPIKey:         os.Getenv("PINATA_API_KEY"),
		PinataSecretKey:      os.Getenv("PINATA_SECRET_KEY"),
		PinataBaseURL:        getEnv("PINATA_BASE_URL", "https://api.pinata.cloud"),
		PinataGatewayURL:     getEnv("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud"),
		PostmarkServerToken:  os.Getenv("POSTMARK_SERVER_TOKEN"),
		PostmarkAccountToken: os.Getenv("POSTMARK_ACCOUNT_TOKEN"),
		MailSenderEmail:      os.Getenv("MAIL_SENDER_EMAIL"),
		MailSenderName:       getEnv("MAIL_SENDER_NAME", "Endless Forge"),
		ContactReceiver:      os.Getenv("CONTACT_RECEIVER"),
		SiteName:             getEnv("SITE_NAME", "Endless Forge"),
		PlanLimits:           os.Getenv("PLAN_LIMITS"),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		UpstreamTimeout:      time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for store driver %q", cfg.StoreDriver)
		}
	case StoreDriverMongo:
		if cfg.MongoURL == "" {
			return nil, fmt.Errorf("MONGODB_URL is required for store driver %q", cfg.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.PostmarkServerToken != "" {
		if strings.TrimSpace(cfg.MailSenderEmail) == "" {
			return nil, fmt.Errorf("MAIL_SENDER_EMAIL is required when POSTMARK_SERVER_TOKEN is set")
		}
		if strings.TrimSpace(cfg.ContactReceiver) == "" {
			return nil, fmt.Errorf("CONTACT_RECEIVER is required when POSTMARK_SERVER_TOKEN is set")
		}
	}

	return cfg, nil
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

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
