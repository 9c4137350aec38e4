package goPassport

import (
	"errors"
	"strings"
	"time"
)

// Config is the engine configuration. Instances are intended to be set up
// during initialization and then treated as immutable.
type Config struct {
	JWT      JWTConfig
	Token    TokenConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the key material used to verify bearer token signatures.
// Issuance settings (AccessTTL) are only read by routers that also sign tokens.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte // hs256 shared secret
	PublicKey     []byte // ed25519 verify key, raw or PEM
	PrivateKey    []byte // ed25519 signing key, only needed by issuers
	Issuer        string
	Audience      string
	KeyID         string
	AccessTTL     time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the token validator.
type TokenConfig struct {
	// GraceExemptPaths are the logical paths reachable with an expired token.
	// Matching is exact; "/user/extend/" does not match "/user/extend".
	GraceExemptPaths []string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the password hasher built when none is supplied
// through [Builder.WithHasher].
type PasswordConfig struct {
	Algorithm string // "bcrypt" (default), "argon2id" or "auto"
	// BcryptCost is only used when hashing; comparison reads the cost from the hash.
	BcryptCost int
	Memory      uint32 // argon2id, in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Key material must still
// be supplied before [Config.Validate] passes.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			AccessTTL:     7 * 24 * time.Hour,
		},
		Token: TokenConfig{
			GraceExemptPaths: append([]string(nil), DefaultGraceExemptPaths...),
		},
		Password: PasswordConfig{
			Algorithm:   "bcrypt",
			BcryptCost:  10,
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.Token.GraceExemptPaths = append([]string(nil), cfg.Token.GraceExemptPaths...)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.validateJWT(); err != nil {
		return err
	}
	return c.validateCore()
}

func (c *Config) validateJWT() error {
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.Secret) == 0 {
			return errors.New("hs256 requires Secret")
		}
		if len(c.JWT.Secret) < 32 {
			return errors.New("hs256 Secret must be at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.AccessTTL < 0 {
		return errors.New("JWT AccessTTL must be >= 0")
	}
	return nil
}

// validateCore checks everything except JWT key material, which is not used
// when a custom ClaimsDecoder is supplied.
func (c *Config) validateCore() error {
	// Token
	seen := make(map[string]struct{}, len(c.Token.GraceExemptPaths))
	for _, p := range c.Token.GraceExemptPaths {
		if p == "" || !strings.HasPrefix(p, "/") {
			return errors.New("Token GraceExemptPaths entries must be absolute paths")
		}
		if strings.ContainsAny(p, "?#") {
			return errors.New("Token GraceExemptPaths entries must not contain a query or fragment")
		}
		if _, dup := seen[p]; dup {
			return errors.New("Token GraceExemptPaths contains a duplicate entry")
		}
		seen[p] = struct{}{}
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt", "auto":
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	case "argon2id":
	default:
		return errors.New("Password Algorithm must be 'bcrypt', 'argon2id' or 'auto'")
	}
	if c.Password.Algorithm == "argon2id" || c.Password.Algorithm == "auto" {
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
