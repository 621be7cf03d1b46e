// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the database, CRM delivery, reminders and
// observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "vibe-compass")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CRM providers accepted by CRM_PROVIDER.
const (
	CRMNone    = "none"
	CRMAmo     = "amocrm"
	CRMWebhook = "webhook"
)

// CRMConfig selects and configures the lead sink.
type CRMConfig struct {
	Provider   string        // CRM_PROVIDER: none|amocrm|webhook
	AmoDomain  string        // AMOCRM_DOMAIN (e.g. "example.amocrm.ru")
	AmoToken   string        // AMOCRM_TOKEN (long-lived access token)
	WebhookURL string        // CRM_WEBHOOK_URL
	Secret     string        // CRM_WEBHOOK_SECRET, sent as a bearer token
	Timeout    time.Duration // CRM_TIMEOUT
}

// SMTPConfig configures operator email notifications. Disabled when Host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string // SMTP_TO, comma-separated
}

// Enabled reports whether a mail relay is configured.
func (s SMTPConfig) Enabled() bool { return s.Host != "" && len(s.To) > 0 }

// ReminderConfig configures the deferred reminder hand-off.
type ReminderConfig struct {
	Delay       time.Duration // REMINDER_DELAY
	AMQPURL     string        // AMQP_URL; empty keeps reminders in process memory
	Queue       string        // REMINDER_QUEUE
	CallbackURL string        // REMINDER_CALLBACK_URL; where due reminder replies are posted
}

// PacingConfig holds the delay hints returned with funnel replies.
type PacingConfig struct {
	QuestionDelay time.Duration // QUESTION_DELAY
	OfferDelay    time.Duration // OFFER_DELAY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Database
	DBDriver string // sqlite|postgres|mysql
	DBDSN    string // file path for sqlite, connection string otherwise

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a processed event key is remembered

	// Funnel collaborators
	CRM        CRMConfig
	SMTP       SMTPConfig
	Reminder   ReminderConfig
	Pacing     PacingConfig
	AdminToken string // ADMIN_TOKEN; empty leaves admin routes open

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBDSN:    getenv("DB_DSN", "funnel.db"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Funnel collaborators
		CRM: CRMConfig{
			Provider:   strings.ToLower(getenv("CRM_PROVIDER", CRMNone)),
			AmoDomain:  getenv("AMOCRM_DOMAIN", ""),
			AmoToken:   getenv("AMOCRM_TOKEN", ""),
			WebhookURL: getenv("CRM_WEBHOOK_URL", ""),
			Secret:     getenv("CRM_WEBHOOK_SECRET", ""),
			Timeout:    getdur("CRM_TIMEOUT", 10*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", ""),
			Port:     getint("SMTP_PORT", 587),
			User:     getenv("SMTP_USER", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "funnel@localhost"),
			To:       splitCSV(getenv("SMTP_TO", "")),
		},
		Reminder: ReminderConfig{
			Delay:       getdur("REMINDER_DELAY", 24*time.Hour),
			AMQPURL:     getenv("AMQP_URL", ""),
			Queue:       getenv("REMINDER_QUEUE", "q.reminders"),
			CallbackURL: getenv("REMINDER_CALLBACK_URL", ""),
		},
		Pacing: PacingConfig{
			QuestionDelay: getdur("QUESTION_DELAY", 1500*time.Millisecond),
			OfferDelay:    getdur("OFFER_DELAY", 2*time.Second),
		},
		AdminToken: getenv("ADMIN_TOKEN", ""),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "vibe-compass"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	switch cfg.CRM.Provider {
	case CRMNone:
	case CRMAmo:
		if cfg.CRM.AmoDomain == "" || cfg.CRM.AmoToken == "" {
			return cfg, errors.New("CRM_PROVIDER=amocrm requires AMOCRM_DOMAIN and AMOCRM_TOKEN")
		}
	case CRMWebhook:
		if cfg.CRM.WebhookURL == "" {
			return cfg, errors.New("CRM_PROVIDER=webhook requires CRM_WEBHOOK_URL")
		}
	default:
		return cfg, errors.New("CRM_PROVIDER must be one of: none, amocrm, webhook")
	}
	if cfg.CRM.Timeout <= 0 {
		return cfg, errors.New("CRM_TIMEOUT must be > 0")
	}
	if cfg.SMTP.Port <= 0 {
		return cfg, errors.New("SMTP_PORT must be > 0")
	}
	if cfg.Reminder.Delay <= 0 {
		return cfg, errors.New("REMINDER_DELAY must be > 0")
	}
	if cfg.Pacing.QuestionDelay < 0 || cfg.Pacing.OfferDelay < 0 {
		return cfg, errors.New("QUESTION_DELAY and OFFER_DELAY must be >= 0")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
