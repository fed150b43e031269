package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yemalin/api/internal/platform/config"
)

var (
	// ErrAdminTokenInvalid signals a malformed or tampered admin token.
	ErrAdminTokenInvalid = errors.New("auth: admin token invalid")
	// ErrAdminTokenExpired signals an expired admin token.
	ErrAdminTokenExpired = errors.New("auth: admin token expired")
)

// AdminClaims carries the verified admin token payload.
type AdminClaims struct {
	Subject string
	Issuer  string
	Expires time.Time
}

// AdminTokenManager issues and verifies HS256 signed tokens for the admin API.
type AdminTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// AdminTokenOption customises the manager.
type AdminTokenOption func(*AdminTokenManager)

// WithAdminClock injects a custom clock (useful for tests).
func WithAdminClock(clock func() time.Time) AdminTokenOption {
	return func(m *AdminTokenManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewAdminTokenManager constructs a manager from the admin token configuration.
func NewAdminTokenManager(cfg config.AdminTokenConfig, opts ...AdminTokenOption) (*AdminTokenManager, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: admin token secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	m := &AdminTokenManager{
		secret: []byte(secret),
		issuer: strings.TrimSpace(cfg.Issuer),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Issue mints a signed token for the given subject.
func (m *AdminTokenManager) Issue(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates the token, returning the embedded claims.
func (m *AdminTokenManager) Verify(tokenStr string) (AdminClaims, error) {
	if m == nil {
		return AdminClaims{}, ErrAdminTokenInvalid
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AdminClaims{}, ErrAdminTokenExpired
		}
		return AdminClaims{}, fmt.Errorf("%w: %v", ErrAdminTokenInvalid, err)
	}

	if m.issuer != "" && claims.Issuer != m.issuer {
		return AdminClaims{}, fmt.Errorf("%w: unexpected issuer", ErrAdminTokenInvalid)
	}

	out := AdminClaims{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		out.Expires = claims.ExpiresAt.Time
	}
	return out, nil
}

// RequireAdminToken guards admin routes behind a valid bearer token.
func (m *AdminTokenManager) RequireAdminToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}

			claims, err := m.Verify(tokenStr)
			if err != nil {
				if errors.Is(err, ErrAdminTokenExpired) {
					respondAuthError(w, http.StatusUnauthorized, "token_expired", "admin token expired")
					return
				}
				respondAuthError(w, http.StatusUnauthorized, "invalid_token", "admin token invalid")
				return
			}

			identity := &Identity{
				UID:   claims.Subject,
				Roles: []string{RoleAdmin},
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
