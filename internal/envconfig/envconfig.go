// Package envconfig loads the passport-server configuration from PASSPORT_*
// environment variables.
package envconfig

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	goPassport "github.com/MrEthical07/goPassport"
	"github.com/caarlos0/env/v11"
)

// Env is the flat environment view of the server configuration.
type Env struct {
	Addr    string `env:"PASSPORT_ADDR"    envDefault:":8080"`
	Backend string `env:"PASSPORT_BACKEND" envDefault:"redis"`

	RedisAddr     string `env:"PASSPORT_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"PASSPORT_REDIS_PASSWORD"`
	RedisDB       int    `env:"PASSPORT_REDIS_DB"       envDefault:"0"`
	RedisPrefix   string `env:"PASSPORT_REDIS_PREFIX"   envDefault:"passport"`

	PostgresDSN     string `env:"PASSPORT_POSTGRES_DSN"`
	PostgresMigrate bool   `env:"PASSPORT_POSTGRES_MIGRATE" envDefault:"true"`

	MaxTokensPerUser int `env:"PASSPORT_MAX_TOKENS_PER_USER" envDefault:"0"`

	JWTSigningMethod  string        `env:"PASSPORT_JWT_SIGNING_METHOD"   envDefault:"hs256"`
	JWTSecret         string        `env:"PASSPORT_JWT_SECRET"`
	JWTPublicKeyFile  string        `env:"PASSPORT_JWT_PUBLIC_KEY_FILE"`
	JWTPrivateKeyFile string        `env:"PASSPORT_JWT_PRIVATE_KEY_FILE"`
	JWTIssuer         string        `env:"PASSPORT_JWT_ISSUER"`
	JWTAudience       string        `env:"PASSPORT_JWT_AUDIENCE"`
	JWTKeyID          string        `env:"PASSPORT_JWT_KEY_ID"`
	AccessTTL         time.Duration `env:"PASSPORT_ACCESS_TTL"           envDefault:"168h"`

	GraceExemptPaths []string `env:"PASSPORT_GRACE_EXEMPT_PATHS" envSeparator:"," envDefault:"/user/extend,/user/logout"`

	PasswordAlgorithm string `env:"PASSPORT_PASSWORD_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int    `env:"PASSPORT_BCRYPT_COST"        envDefault:"10"`

	AuditEnabled    bool   `env:"PASSPORT_AUDIT_ENABLED"     envDefault:"false"`
	AuditBufferSize int    `env:"PASSPORT_AUDIT_BUFFER_SIZE" envDefault:"1024"`
	AuditSink       string `env:"PASSPORT_AUDIT_SINK"        envDefault:"slog"`

	MetricsEnabled    bool `env:"PASSPORT_METRICS_ENABLED"    envDefault:"true"`
	LatencyHistograms bool `env:"PASSPORT_LATENCY_HISTOGRAMS" envDefault:"true"`

	LogLevel  string `env:"PASSPORT_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"PASSPORT_LOG_FORMAT" envDefault:"json"`
}

// Load parses the process environment.
func Load() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, e.validate()
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, e.validate()
}

func (e Env) validate() error {
	switch e.Backend {
	case "redis":
	case "postgres":
		if e.PostgresDSN == "" {
			return errors.New("PASSPORT_POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported PASSPORT_BACKEND %q", e.Backend)
	}
	switch e.AuditSink {
	case "slog", "json", "none":
	default:
		return fmt.Errorf("unsupported PASSPORT_AUDIT_SINK %q", e.AuditSink)
	}
	return nil
}

// PassportConfig converts e into an engine [goPassport.Config]. Key files are
// read here; the result is validated by the builder.
func (e Env) PassportConfig() (goPassport.Config, error) {
	cfg := goPassport.DefaultConfig()

	cfg.JWT.SigningMethod = strings.ToLower(e.JWTSigningMethod)
	cfg.JWT.Secret = []byte(e.JWTSecret)
	cfg.JWT.Issuer = e.JWTIssuer
	cfg.JWT.Audience = e.JWTAudience
	cfg.JWT.KeyID = e.JWTKeyID
	cfg.JWT.AccessTTL = e.AccessTTL
	if e.JWTPublicKeyFile != "" {
		b, err := os.ReadFile(e.JWTPublicKeyFile)
		if err != nil {
			return goPassport.Config{}, fmt.Errorf("read public key: %w", err)
		}
		cfg.JWT.PublicKey = b
	}
	if e.JWTPrivateKeyFile != "" {
		b, err := os.ReadFile(e.JWTPrivateKeyFile)
		if err != nil {
			return goPassport.Config{}, fmt.Errorf("read private key: %w", err)
		}
		cfg.JWT.PrivateKey = b
	}

	paths := make([]string, 0, len(e.GraceExemptPaths))
	for _, p := range e.GraceExemptPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	cfg.Token.GraceExemptPaths = paths

	cfg.Password.Algorithm = strings.ToLower(e.PasswordAlgorithm)
	cfg.Password.BcryptCost = e.BcryptCost

	cfg.Audit.Enabled = e.AuditEnabled && e.AuditSink != "none"
	cfg.Audit.BufferSize = e.AuditBufferSize

	cfg.Metrics.Enabled = e.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = e.LatencyHistograms

	return cfg, nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (e Env) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(e.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// AuditSinkFor returns the audit sink selected by AuditSink.
func (e Env) AuditSinkFor(logger *slog.Logger, w io.Writer) goPassport.AuditSink {
	switch e.AuditSink {
	case "json":
		return goPassport.NewJSONWriterSink(w)
	case "slog":
		return goPassport.NewSlogSink(logger)
	default:
		return goPassport.NoOpSink{}
	}
}
