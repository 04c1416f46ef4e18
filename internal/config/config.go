// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, the SQLite-backed sheet store, worksheet names, and the policy
// values that drive the membership enforcement loops.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the
// registration API.
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "attendance-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SheetsConfig names the worksheets that make up the record store. The
// participants sheet is the roster; the rest back read-only queries and the
// second cohort's registration form.
type SheetsConfig struct {
	Participants  string // roster: names, identity links, attendance columns
	Assignments   string
	Recordings    string
	Resources     string
	OverallScores string
	Registration  string // second cohort sign-up sheet
}

// EnforcementConfig holds the timing and retry policy of the membership
// verification workflow. The defaults mirror the grace-period contract:
// a re-check every 50 seconds, escalation after the pending ceiling is
// exhausted, and a slower-bounded reinstatement loop after removal.
type EnforcementConfig struct {
	RecheckInterval    time.Duration // PENDING_RECHECK_INTERVAL, also first-fire delay
	PendingMaxAttempts int           // PENDING_MAX_ATTEMPTS
	RemovedMaxAttempts int           // REMOVED_MAX_ATTEMPTS
}

// Config holds all configuration values for the application.
type Config struct {
	// Server (registration API)
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool
	APIBasePath string

	// Bot
	BotName       string // display name used in greetings
	GroupLink     string // invite link sent after payment validation
	PaymentGate   bool   // true: joins are validated by payment reference, not name
	WebhookSecret string // shared secret required on inbound update posts
	SelfID        int64  // the bot's own chat identity, skipped in join events

	// Record store
	DBPath string // SQLite path backing the sheet grid
	Sheets SheetsConfig

	// Attendance
	MarkValue int // marks credited per attendance

	// Enforcement policy
	Enforcement EnforcementConfig

	// Rate limiting (registration API)
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency (registration submits)
	IdempotencyTTL time.Duration

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

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
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

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Bot
		BotName:       getenv("BOT_NAME", "Docs and Decks Attendance Bot"),
		GroupLink:     getenv("GROUP_LINK", ""),
		PaymentGate:   getbool("PAYMENT_GATE", false),
		WebhookSecret: getenv("WEBHOOK_SECRET", ""),
		SelfID:        geti64("BOT_SELF_ID", 0),

		// Record store
		DBPath: getenv("DB_PATH", "attendance.db"),
		Sheets: SheetsConfig{
			Participants:  getenv("SHEET_PARTICIPANTS", "participants"),
			Assignments:   getenv("SHEET_ASSIGNMENTS", "assignments"),
			Recordings:    getenv("SHEET_RECORDINGS", "recordings"),
			Resources:     getenv("SHEET_RESOURCES", "resources"),
			OverallScores: getenv("SHEET_OVERALL_SCORES", "overall"),
			Registration:  getenv("SHEET_REGISTRATION", "registration"),
		},

		// Attendance
		MarkValue: getint("ATTENDANCE_MARK_VALUE", 10),

		// Enforcement policy
		Enforcement: EnforcementConfig{
			RecheckInterval:    getdur("PENDING_RECHECK_INTERVAL", 50*time.Second),
			PendingMaxAttempts: getint("PENDING_MAX_ATTEMPTS", 5),
			RemovedMaxAttempts: getint("REMOVED_MAX_ATTEMPTS", 10),
		},

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

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "attendance-bot"),
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
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Sheets.Participants) == "" {
		return cfg, errors.New("SHEET_PARTICIPANTS must not be empty")
	}
	if cfg.MarkValue <= 0 {
		return cfg, errors.New("ATTENDANCE_MARK_VALUE must be > 0")
	}
	if cfg.Enforcement.RecheckInterval <= 0 {
		return cfg, errors.New("PENDING_RECHECK_INTERVAL must be > 0")
	}
	if cfg.Enforcement.PendingMaxAttempts < 0 || cfg.Enforcement.RemovedMaxAttempts < 0 {
		return cfg, errors.New("attempt ceilings must be >= 0")
	}
	if cfg.PaymentGate && strings.TrimSpace(cfg.GroupLink) == "" {
		return cfg, errors.New("GROUP_LINK is required when PAYMENT_GATE is enabled")
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

func geti64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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
