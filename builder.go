package goPassport

import (
	"errors"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goPassport/internal/audit"
	"github.com/MrEthical07/goPassport/password"
)

// Builder assembles an [Engine]. A Builder is single-use: the second call to
// [Builder.Build] fails.
type Builder struct {
	config Config

	directory UserDirectory
	hasher    PasswordHasher
	decoder   ClaimsDecoder
	extractor TokenExtractor
	resolver  PathResolver
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDirectory sets the user directory both strategies read from. Required.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithHasher overrides the hasher otherwise built from Config.Password.
func (b *Builder) WithHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithClaimsDecoder overrides the JWT decoder otherwise built from Config.JWT.
// When set, Config.JWT is not validated.
func (b *Builder) WithClaimsDecoder(d ClaimsDecoder) *Builder {
	b.decoder = d
	return b
}

// WithTokenExtractor overrides [BearerToken].
func (b *Builder) WithTokenExtractor(fn TokenExtractor) *Builder {
	b.extractor = fn
	return b
}

// WithPathResolver overrides [RequestPath]. Routers mounted under a prefix
// use it to strip the prefix before grace-exempt matching.
func (b *Builder) WithPathResolver(fn PathResolver) *Builder {
	b.resolver = fn
	return b
}

// WithAuditSink sets the sink fed by the audit dispatcher when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for expiry decisions and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	cfg := cloneConfig(b.config)
	validate := cfg.Validate
	if b.decoder != nil {
		validate = cfg.validateCore
	}
	if err := validate(); err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := NewPasswordHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	decoder := b.decoder
	if decoder == nil {
		jm, err := NewJWTManager(cfg.JWT)
		if err != nil {
			return nil, err
		}
		decoder = NewJWTDecoder(jm)
	}

	extractor := b.extractor
	if extractor == nil {
		extractor = BearerToken
	}
	resolver := b.resolver
	if resolver == nil {
		resolver = RequestPath
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	metrics := NewMetrics(cfg.Metrics)
	dispatcher := internalaudit.NewDispatcherWithClock(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, now)

	obs := observer{
		metrics: metrics,
		audit:   auditEmitter{dispatcher: dispatcher, now: now},
		logger:  logger,
		now:     now,
	}

	engine := &Engine{
		config:      cfg,
		metrics:     metrics,
		audit:       dispatcher,
		logger:      logger,
		credentials: newCredentialVerifier(b.directory, hasher, obs),
		tokens: newTokenValidator(
			b.directory,
			decoder,
			extractor,
			resolver,
			cfg.Token.GraceExemptPaths,
			obs,
		),
	}

	b.built = true

	return engine, nil
}

// NewPasswordHasher builds the hasher selected by cfg.Algorithm. Routers use
// the same hasher to create password hashes the engine can compare.
func NewPasswordHasher(cfg PasswordConfig) (password.Hasher, error) {
	argonCfg := password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	}

	switch cfg.Algorithm {
	case "bcrypt":
		return password.NewBcrypt(cfg.BcryptCost)
	case "argon2id":
		return password.NewArgon2(argonCfg)
	case "auto":
		bc, err := password.NewBcrypt(cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		ar, err := password.NewArgon2(argonCfg)
		if err != nil {
			return nil, err
		}
		return password.NewAuto(ar, bc, ar), nil
	default:
		return nil, errors.New("unsupported password algorithm")
	}
}
