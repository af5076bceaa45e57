// Package auth issues and verifies the bearer tokens that bind an HTTP caller
// to an agent id.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
)

// DefaultTTL is how long an issued token stays valid
const DefaultTTL = 24 * time.Hour

// IssuerKeyHeader carries the credential needed to mint tokens
const IssuerKeyHeader = "X-Issuer-Key"

const issuer = "agent-dungeon"

// Signer issues and verifies HS256 agent tokens.
type Signer struct {
	secret    []byte
	issuerKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewSigner returns a signer for secret. An empty secret yields nil, which
// callers treat as authentication being disabled. Tokens are only minted
// for callers presenting issuerKey; an empty issuerKey disables minting.
func NewSigner(secret, issuerKey string, ttl time.Duration) *Signer {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{
		secret:    []byte(secret),
		issuerKey: []byte(strings.TrimSpace(issuerKey)),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Authorize checks the key presented by a caller asking for a token.
func (s *Signer) Authorize(presented string) error {
	if len(s.issuerKey) == 0 {
		return apperrors.New(apperrors.CodeUnauthenticated, "token issuing is disabled")
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), s.issuerKey) != 1 {
		return apperrors.New(apperrors.CodeUnauthenticated, "issuer key is invalid")
	}
	return nil
}

// SetClock overrides the clock used for issuing and expiry checks.
func (s *Signer) SetClock(now func() time.Time) {
	s.now = now
}

type agentClaims struct {
	jwt.RegisteredClaims
}

// Issue signs a token whose subject is agentID.
func (s *Signer) Issue(agentID string) (string, time.Time, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return "", time.Time{}, apperrors.New(apperrors.CodeInvalidArgument, "agent_id is required")
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := agentClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   agentID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(apperrors.CodeUnknown, "sign token", err)
	}
	return signed, exp, nil
}

// Verify checks token and returns the agent id it was issued to.
func (s *Signer) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "token is required")
	}
	var parsed agentClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}
	if parsed.Issuer != issuer {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "token issuer mismatch")
	}
	if parsed.Subject == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "token subject is required")
	}
	if parsed.ExpiresAt == nil || !parsed.ExpiresAt.Time.After(s.now()) {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "token is expired")
	}
	return parsed.Subject, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token is malformed", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token cannot be verified", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token is invalid", err)
	}
}

type agentKey struct{}

// WithAgent stores the authenticated agent id on ctx.
func WithAgent(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentKey{}, agentID)
}

// AgentFromContext returns the authenticated agent id, if any.
func AgentFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(agentKey{}).(string)
	return id, ok && id != ""
}

// Middleware rejects requests without a valid bearer token and stores the
// agent id on the request context. A nil signer lets every request through
// unauthenticated.
func Middleware(s *Signer, onError func(http.ResponseWriter, error)) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s == nil {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				onError(w, apperrors.New(apperrors.CodeUnauthenticated, "missing bearer token"))
				return
			}
			agentID, err := s.Verify(token)
			if err != nil {
				onError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), agentID)))
		})
	}
}
