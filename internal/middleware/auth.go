package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AdminContextKey is the context key for storing the verified admin claims
	AdminContextKey contextKey = "admin"

	// RoleAdmin is the role claim required on admin routes.
	RoleAdmin = "admin"
)

// AdminClaims are the JWT claims accepted on admin routes. Tokens are issued
// elsewhere; this service only verifies them.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	// Secret is the HS256 signing key.
	Secret []byte

	// Issuer, when set, must match the iss claim.
	Issuer string
}

// RequireAdmin verifies an HS256 bearer token and requires role=admin.
// Missing or invalid tokens get 401, valid tokens without the role get 403.
func RequireAdmin(cfg AuthConfig) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				respondUnauthorized(w, r, "Authentication required")
				return
			}

			claims := &AdminClaims{}
			_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return cfg.Secret, nil
			})
			if err != nil {
				message := "Invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					message = "Token expired"
				}
				GetLogger(r.Context()).Info("admin token rejected", "error", err)
				respondUnauthorized(w, r, message)
				return
			}

			if claims.Role != RoleAdmin {
				respondForbidden(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), AdminContextKey, claims)
			logger := GetLogger(ctx).With("admin", claims.Subject)
			ctx = context.WithValue(ctx, LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetAdminFromContext returns the verified admin claims, or nil outside
// admin routes.
func GetAdminFromContext(ctx context.Context) *AdminClaims {
	claims, ok := ctx.Value(AdminContextKey).(*AdminClaims)
	if !ok {
		return nil
	}
	return claims
}
