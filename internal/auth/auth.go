// Package auth guards the operator endpoints with a bcrypt-hashed shared key.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// HeaderName carries the operator key.
const HeaderName = "X-Diagnostics-Key"

type contextKey string

const operatorContextKey contextKey = "auth/operator"

// KeyGuard compares the request key against a bcrypt hash.
// An empty hash leaves the guarded routes open.
type KeyGuard struct {
	Hash string
}

// HashKey returns the bcrypt hash to store in DIAGNOSTICS_KEY_HASH.
func HashKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Enabled reports whether a key is required.
func (g KeyGuard) Enabled() bool { return strings.TrimSpace(g.Hash) != "" }

// Check validates a presented key.
func (g KeyGuard) Check(key string) bool {
	if !g.Enabled() {
		return true
	}
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(g.Hash), []byte(key)) == nil
}

// Require rejects requests without a valid key with 403.
func (g KeyGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Check(r.Header.Get(HeaderName)) {
			log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("operator key rejected")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"success":false,"error":"clé d'accès invalide"}`))
			return
		}
		if g.Enabled() {
			r = r.WithContext(context.WithValue(r.Context(), operatorContextKey, true))
		}
		next.ServeHTTP(w, r)
	})
}

// IsOperator reports whether the request passed an enabled guard.
func IsOperator(ctx context.Context) bool {
	ok, _ := ctx.Value(operatorContextKey).(bool)
	return ok
}
