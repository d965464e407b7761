package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// CookieName is checked when no Authorization header is sent.
const CookieName = "auth_token"

// DefaultTokenTTL is used when no lifetime is configured.
const DefaultTokenTTL = 24 * time.Hour

// User is the identity carried by a validated token.
type User struct {
	Subject string `json:"subject"`
	Name    string `json:"name,omitempty"`
}

type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs and checks HS256 bearer tokens for the document API.
type Authenticator struct {
	secret  []byte
	enabled bool
	ttl     time.Duration
	now     func() time.Time
}

// New creates an Authenticator. Enabling it without a secret is an error.
func New(secret string, enabled bool, ttl time.Duration) (*Authenticator, error) {
	if enabled && secret == "" {
		return nil, errors.New("auth enabled but no JWT secret configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{
		secret:  []byte(secret),
		enabled: enabled,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Enabled returns whether authentication is enforced
func (a *Authenticator) Enabled() bool {
	return a != nil && a.enabled
}

// GenerateToken creates a signed token for subject.
func (a *Authenticator) GenerateToken(subject, name string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("no JWT secret configured")
	}
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := a.now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates and parses a token
func (a *Authenticator) ValidateToken(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return &User{Subject: claims.Subject, Name: claims.Name}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// Require rejects requests without a valid token when authentication is
// enabled. When it is disabled every request passes through.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			unauthorized(w, "authentication required")
			return
		}

		user, err := a.ValidateToken(tokenString)
		if err != nil {
			unauthorized(w, "invalid authentication token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="kbsearch"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// UserFromContext extracts the authenticated user, if any
func UserFromContext(ctx context.Context) *User {
	if user, ok := ctx.Value(UserContextKey).(*User); ok {
		return user
	}
	return nil
}
