package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// Every key the loader reads. Cleared up front so ambient environment
// (CI, developer shells) cannot leak into assertions.
var allKeys = []string{
	"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
	"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "API_BASE_PATH",
	"BOT_NAME", "GROUP_LINK", "PAYMENT_GATE", "WEBHOOK_SECRET", "BOT_SELF_ID",
	"DB_PATH", "SHEET_PARTICIPANTS", "SHEET_ASSIGNMENTS", "SHEET_RECORDINGS",
	"SHEET_RESOURCES", "SHEET_OVERALL_SCORES", "SHEET_REGISTRATION",
	"ATTENDANCE_MARK_VALUE", "PENDING_RECHECK_INTERVAL", "PENDING_MAX_ATTEMPTS",
	"REMOVED_MAX_ATTEMPTS", "RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS",
	"ENABLE_HSTS", "HSTS_MAX_AGE", "IDEMPOTENCY_TTL",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
	"OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
}

func TestMain(m *testing.M) {
	for _, k := range allKeys {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// applyEnv sets every pair via t.Setenv so the framework restores them.
func applyEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestMustLoad(t *testing.T) {
	t.Run("panics when validation fails", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		defer func() {
			if recover() == nil {
				t.Fatal("MustLoad accepted an invalid LOG_LEVEL")
			}
		}()
		_ = MustLoad()
	})

	t.Run("returns on a clean environment", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("MustLoad panicked on defaults: %v", r)
			}
		}()
		if got := MustLoad(); got.Port != "8080" {
			t.Fatalf("Port = %q, want default 8080", got.Port)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.DBPath != "attendance.db" || cfg.Sheets.Participants != "participants" ||
		cfg.Sheets.Registration != "registration" {
		t.Fatalf("store defaults wrong: %q %q %q",
			cfg.DBPath, cfg.Sheets.Participants, cfg.Sheets.Registration)
	}
	if cfg.Enforcement.RecheckInterval != 50*time.Second ||
		cfg.Enforcement.PendingMaxAttempts != 5 ||
		cfg.Enforcement.RemovedMaxAttempts != 10 {
		t.Fatalf("enforcement defaults wrong: %+v", cfg.Enforcement)
	}
	if cfg.MarkValue != 10 {
		t.Fatalf("MarkValue = %d, want 10", cfg.MarkValue)
	}
	if cfg.SelfID != 0 || cfg.PaymentGate || cfg.WebhookSecret != "" {
		t.Fatalf("bot defaults wrong: %d %v %q", cfg.SelfID, cfg.PaymentGate, cfg.WebhookSecret)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath = %q, want /api/v1", cfg.APIBasePath)
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	applyEnv(t, map[string]string{
		"PORT":                "9090",
		"READ_TIMEOUT":        "2s",
		"READ_HEADER_TIMEOUT": "1s",
		"WRITE_TIMEOUT":       "3s",
		"IDLE_TIMEOUT":        "4s",
		"MAX_HEADER_BYTES":    "8192",

		// Unknown gin mode falls back; "warning" aliases to "warn".
		"GIN_MODE":  "weird",
		"LOG_LEVEL": "WARNING",

		"LOG_PRETTY":    "yes",
		"API_BASE_PATH": "api/v2/",

		"BOT_NAME":       "Cohort Bot",
		"GROUP_LINK":     "https://chat.example/join/abc",
		"PAYMENT_GATE":   "on",
		"WEBHOOK_SECRET": "hook-secret",
		"BOT_SELF_ID":    "424242",

		"DB_PATH":            "cohort.db",
		"SHEET_PARTICIPANTS": "roster",
		"SHEET_REGISTRATION": "signup",

		"ATTENDANCE_MARK_VALUE":    "5",
		"PENDING_RECHECK_INTERVAL": "30s",
		"PENDING_MAX_ATTEMPTS":     "3",
		"REMOVED_MAX_ATTEMPTS":     "6",

		// Unparseable numbers fall back to the defaults.
		"RATE_RPS":   "x",
		"RATE_BURST": "nope",

		"CORS_ALLOWED_ORIGINS": " https://a.com , , http://b ",
		"ENABLE_HSTS":          "TRUE",
		"HSTS_MAX_AGE":         "24h",
		"IDEMPOTENCY_TTL":      "48h",

		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "otel:4317",
		"OTEL_EXPORTER_OTLP_INSECURE": "0",
		"OTEL_SERVICE_NAME":           "svc",
		"OTEL_TRACES_SAMPLER_ARG":     "0.75",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	switch {
	case cfg.Port != "9090":
		t.Fatalf("Port = %q", cfg.Port)
	case cfg.ReadTimeout != 2*time.Second,
		cfg.ReadHeaderTimeout != 1*time.Second,
		cfg.WriteTimeout != 3*time.Second,
		cfg.IdleTimeout != 4*time.Second:
		t.Fatalf("timeouts wrong: %v %v %v %v",
			cfg.ReadTimeout, cfg.ReadHeaderTimeout, cfg.WriteTimeout, cfg.IdleTimeout)
	case cfg.MaxHeaderBytes != 8192:
		t.Fatalf("MaxHeaderBytes = %d", cfg.MaxHeaderBytes)
	case cfg.GinMode != "release":
		t.Fatalf("GinMode = %q, want fallback release", cfg.GinMode)
	case cfg.LogLevel != "warn":
		t.Fatalf("LogLevel = %q, want warn", cfg.LogLevel)
	case !cfg.LogPretty:
		t.Fatal("LogPretty not parsed from yes")
	case cfg.APIBasePath != "/api/v2":
		t.Fatalf("APIBasePath = %q, want /api/v2", cfg.APIBasePath)
	}

	if cfg.BotName != "Cohort Bot" || !cfg.PaymentGate ||
		cfg.GroupLink != "https://chat.example/join/abc" ||
		cfg.WebhookSecret != "hook-secret" || cfg.SelfID != 424242 {
		t.Fatalf("bot section wrong: %+v", cfg)
	}
	if cfg.DBPath != "cohort.db" || cfg.Sheets.Participants != "roster" ||
		cfg.Sheets.Registration != "signup" {
		t.Fatalf("store section wrong: %q %+v", cfg.DBPath, cfg.Sheets)
	}
	if cfg.MarkValue != 5 {
		t.Fatalf("MarkValue = %d", cfg.MarkValue)
	}
	if cfg.Enforcement.RecheckInterval != 30*time.Second ||
		cfg.Enforcement.PendingMaxAttempts != 3 ||
		cfg.Enforcement.RemovedMaxAttempts != 6 {
		t.Fatalf("enforcement wrong: %+v", cfg.Enforcement)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate wrong: %v %d (both should fall back on junk)", cfg.RateRPS, cfg.RateBurst)
	}
	if want := []string{"https://a.com", "http://b"}; !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Fatalf("CORS origins = %#v, want %#v", cfg.CORS.AllowedOrigins, want)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security wrong: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure ||
		cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel wrong: %+v", cfg.OTEL)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "chatty"}, "LOG_LEVEL"},
		{"blank port", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"blank db path", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"blank roster sheet", map[string]string{"SHEET_PARTICIPANTS": "   "}, "SHEET_PARTICIPANTS"},
		{"mark value", map[string]string{"ATTENDANCE_MARK_VALUE": "0"}, "ATTENDANCE_MARK_VALUE"},
		{"recheck interval", map[string]string{"PENDING_RECHECK_INTERVAL": "0s"}, "PENDING_RECHECK_INTERVAL"},
		{"negative attempts", map[string]string{"PENDING_MAX_ATTEMPTS": "-1"}, "attempt ceilings"},
		{"gate without link", map[string]string{"PAYMENT_GATE": "true"}, "GROUP_LINK is required"},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"negative hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"zero idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"sampler out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			applyEnv(t, tc.env)
			_, err := Load()
			if err == nil {
				t.Fatalf("Load accepted %v", tc.env)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Run("getenv", func(t *testing.T) {
		t.Setenv("X_SET", "val")
		t.Setenv("X_EMPTY", "")
		if got := getenv("X_SET", "d"); got != "val" {
			t.Fatalf("getenv set = %q", got)
		}
		if got := getenv("X_EMPTY", "d"); got != "d" {
			t.Fatalf("getenv empty = %q, want default", got)
		}
	})

	t.Run("getbool", func(t *testing.T) {
		for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
			t.Setenv("B_FLAG", v)
			if !getbool("B_FLAG", false) {
				t.Fatalf("getbool(%q) = false", v)
			}
		}
		for _, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
			t.Setenv("B_FLAG", v)
			if getbool("B_FLAG", true) {
				t.Fatalf("getbool(%q) = true", v)
			}
		}
		t.Setenv("B_FLAG", "maybe")
		if !getbool("B_FLAG", true) || getbool("B_FLAG", false) {
			t.Fatal("getbool junk should return the default")
		}
	})

	t.Run("numeric and duration", func(t *testing.T) {
		t.Setenv("F_VALID", "3.14")
		t.Setenv("F_BAD", "pi")
		t.Setenv("I_VALID", "42")
		t.Setenv("I_BAD", "forty")
		t.Setenv("I64_VALID", "9000000000")
		t.Setenv("I64_BAD", "big")
		t.Setenv("D_VALID", "150ms")
		t.Setenv("D_BAD", "soon")

		if getfloat("F_VALID", 0) != 3.14 || getfloat("F_BAD", 1.23) != 1.23 {
			t.Fatal("getfloat parse/fallback wrong")
		}
		if getint("I_VALID", 0) != 42 || getint("I_BAD", 7) != 7 {
			t.Fatal("getint parse/fallback wrong")
		}
		if geti64("I64_VALID", 0) != 9000000000 || geti64("I64_BAD", 3) != 3 {
			t.Fatal("geti64 parse/fallback wrong")
		}
		if getdur("D_VALID", time.Second) != 150*time.Millisecond ||
			getdur("D_BAD", 2*time.Second) != 2*time.Second {
			t.Fatal("getdur parse/fallback wrong")
		}
	})
}

func TestSplitCSV(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV(\"\") = %#v, want nil", out)
	}
	in := " a ,, b,c ,  "
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV(%q) = %#v, want %#v", in, got, want)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":      "/",
		" / ":   "/",
		"v1":    "/v1",
		"/v1/":  "/v1",
		"/v1//": "/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
