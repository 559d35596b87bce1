package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orderforge/pricing-api/internal/platform/httpx"
)

var (
	// ErrTokenExpired signals that the service token has expired.
	ErrTokenExpired = errors.New("auth: service token expired")
	// ErrTokenInvalid signals that the service token failed verification.
	ErrTokenInvalid = errors.New("auth: service token invalid")
)

// ServiceTokenVerifier validates HS256 bearer tokens presented by trusted
// internal services.
type ServiceTokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// VerifierOption customises the verifier.
type VerifierOption func(*ServiceTokenVerifier)

// WithIssuer requires the token iss claim to match the given value.
func WithIssuer(issuer string) VerifierOption {
	return func(v *ServiceTokenVerifier) {
		v.issuer = strings.TrimSpace(issuer)
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *ServiceTokenVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewServiceTokenVerifier constructs a verifier for the shared secret.
func NewServiceTokenVerifier(secret string, opts ...VerifierOption) (*ServiceTokenVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: service token secret is required")
	}
	verifier := &ServiceTokenVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(verifier)
		}
	}
	return verifier, nil
}

// Verify parses and validates the raw token, returning its subject.
func (v *ServiceTokenVerifier) Verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return "", fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	return claims.Subject, nil
}

// Middleware rejects requests that lack a valid Bearer service token.
func (v *ServiceTokenVerifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "missing bearer token", http.StatusUnauthorized))
				return
			}
			if _, err := v.Verify(raw); err != nil {
				code := "unauthorized"
				message := "invalid service token"
				if errors.Is(err, ErrTokenExpired) {
					message = "service token expired"
				}
				httpx.WriteError(r.Context(), w, httpx.NewError(code, message, http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
