package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the evidence service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseDriver  string
	DatabaseURL     string
	RedisURL        string
	RedisChannel    string
	NATSURL         string
	NATSHostSubject string
	NATSSubject     string
	JWTSecret       string
	OutlineCacheTTL time.Duration
	EvidenceTag     string
	ReportBaseURL   string
	DateLayout      string
	LearnerRateMax  int
	LearnerRateWin  time.Duration
	HookRateMax     int
	CORSOrigins     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// ReportURL builds the printable report link for a (course, user) pair.
func (c Config) ReportURL(courseID, userID uint) string {
	base := strings.TrimRight(c.ReportBaseURL, "/")
	return fmt.Sprintf("%s/api/v2/admin/reports/print?course_id=%d&user_id=%d", base, courseID, userID)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EVIDENCE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Evidence API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("redis.channel", "evidence")
	v.SetDefault("nats.host_subject", "lms.events")
	v.SetDefault("nats.subject", "evidence.notifications")
	v.SetDefault("outline.cache_ttl", "5m")
	v.SetDefault("evidence.tag", "evidencia")
	v.SetDefault("report.base_url", "")
	v.SetDefault("report.date_layout", "January 2, 2006")
	v.SetDefault("learner.rate_max", 30)
	v.SetDefault("learner.rate_window", "1m")
	v.SetDefault("hook.rate_max", 120)
	v.SetDefault("cors.allow_origins", "*")

	ttl, err := parseDuration(v.GetString("outline.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid outline cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("learner.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid learner rate window: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseDriver:  strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		RedisChannel:    v.GetString("redis.channel"),
		NATSURL:         v.GetString("nats.url"),
		NATSHostSubject: v.GetString("nats.host_subject"),
		NATSSubject:     v.GetString("nats.subject"),
		JWTSecret:       v.GetString("jwt.secret"),
		OutlineCacheTTL: ttl,
		EvidenceTag:     strings.TrimSpace(v.GetString("evidence.tag")),
		ReportBaseURL:   v.GetString("report.base_url"),
		DateLayout:      v.GetString("report.date_layout"),
		LearnerRateMax:  v.GetInt("learner.rate_max"),
		LearnerRateWin:  window,
		HookRateMax:     v.GetInt("hook.rate_max"),
		CORSOrigins:     strings.TrimSpace(v.GetString("cors.allow_origins")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.EvidenceTag == "" {
		cfg.EvidenceTag = "evidencia"
	}

	if cfg.LearnerRateMax <= 0 {
		cfg.LearnerRateMax = 30
	}
	if cfg.HookRateMax <= 0 {
		cfg.HookRateMax = 120
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
