package goPassport

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/goPassport/jwt"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	if token == "" {
		return "", false
	}
	return token, true
}

// RequestPath resolves the logical path of r as its URL path, without query.
func RequestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.URL.Path
}

// jwtDecoder adapts a [jwt.Manager] to [ClaimsDecoder].
type jwtDecoder struct {
	manager *jwt.Manager
}

// NewJWTDecoder returns a [ClaimsDecoder] backed by m.
func NewJWTDecoder(m *jwt.Manager) ClaimsDecoder {
	return jwtDecoder{manager: m}
}

func (d jwtDecoder) DecodeClaims(token string) (Claims, error) {
	ac, err := d.manager.ParseAccess(token)
	if err != nil {
		return Claims{}, err
	}
	claims := Claims{
		Subject: ac.Subject,
		ID:      ac.ID,
	}
	if ac.ExpiresAt != nil {
		claims.ExpiresAt = ac.ExpiresAt.Time
	}
	if ac.IssuedAt != nil {
		claims.IssuedAt = ac.IssuedAt.Time
	}
	return claims, nil
}

// NewJWTManager builds a [jwt.Manager] from the engine's JWT configuration,
// for routers that sign tokens with the same keys the engine verifies.
func NewJWTManager(cfg JWTConfig) (*jwt.Manager, error) {
	jc := jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		PublicKey:     cloneBytes(cfg.PublicKey),
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		KeyID:         cfg.KeyID,
		AccessTTL:     cfg.AccessTTL,
	}
	if jc.SigningMethod == jwt.MethodHS256 {
		jc.PrivateKey = cloneBytes(cfg.Secret)
	} else {
		jc.PrivateKey = cloneBytes(cfg.PrivateKey)
	}
	return jwt.NewManager(jc)
}
