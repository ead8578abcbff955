package httptransport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds the accepted operator credentials. JWTSecret validates
// HS256 bearer tokens; APIKeyHash is a bcrypt hash accepted as a static key
// for machine clients. Either may be empty to disable that scheme; with both
// empty the API is open, which only makes sense in development.
type AuthConfig struct {
	JWTSecret  []byte
	APIKeyHash []byte
}

func (c AuthConfig) enabled() bool {
	return len(c.JWTSecret) > 0 || len(c.APIKeyHash) > 0
}

// requireAuth guards the subject management endpoints.
func requireAuth(cfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.enabled() {
			next.ServeHTTP(w, r)
			return
		}

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeUnauthorized(w, "missing bearer token")
			return
		}

		if len(cfg.APIKeyHash) > 0 {
			if err := bcrypt.CompareHashAndPassword(cfg.APIKeyHash, []byte(raw)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		if len(cfg.JWTSecret) > 0 {
			_, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return cfg.JWTSecret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		writeUnauthorized(w, "invalid token")
	})
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             "unauthorized",
		"error_description": description,
	})
}
