package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const claimsKey contextKey = "claims"

// AuthMiddleware checks HS256 bearer tokens on requests that change the
// inventory. Read-only methods pass through untouched.
type AuthMiddleware struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthMiddleware returns nil when secret is empty, which disables
// authentication.
func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	if secret == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{secret: []byte(secret), logger: logger}
}

// RequireToken rejects mutating requests without a valid token.
func (am *AuthMiddleware) RequireToken(next http.Handler) http.Handler {
	if am == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtectedRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
			return
		}

		claims, err := am.validateToken(tokenString)
		if err != nil {
			am.logger.Debug("Rejected bearer token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid token", "UNAUTHORIZED")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GenerateToken issues a token for subject that expires after ttl.
func GenerateToken(subject, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// SubjectFromContext returns the subject of the verified token, if any.
func SubjectFromContext(ctx context.Context) string {
	claims, ok := ctx.Value(claimsKey).(*jwt.RegisteredClaims)
	if !ok {
		return ""
	}
	return claims.Subject
}

func (am *AuthMiddleware) validateToken(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header required")
	}

	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return "", fmt.Errorf("invalid authorization format")
	}

	return strings.TrimSpace(tokenString), nil
}

func isProtectedRequest(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
