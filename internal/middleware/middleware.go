package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrAdminDisabled = errors.New("admin token not configured")

// TokenVerifier checks an admin token presented on a request.
type TokenVerifier interface {
	Verify(token string) error
}

// BcryptVerifier compares tokens against a bcrypt hash. An empty hash
// rejects every token.
type BcryptVerifier struct {
	Hash []byte
}

func (v BcryptVerifier) Verify(token string) error {
	if len(v.Hash) == 0 {
		return ErrAdminDisabled
	}
	return bcrypt.CompareHashAndPassword(v.Hash, []byte(token))
}

// AdminVerifierFromEnv reads the bcrypt hash from ADMIN_TOKEN_HASH.
func AdminVerifierFromEnv() BcryptVerifier {
	return BcryptVerifier{Hash: []byte(strings.TrimSpace(os.Getenv("ADMIN_TOKEN_HASH")))}
}

// AdminMiddleware lets a request through only with a valid admin token,
// sent as "Authorization: Bearer <token>" or in X-Admin-Token.
func AdminMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Unauthorized: missing admin token", http.StatusUnauthorized)
				return
			}

			if err := verifier.Verify(token); err != nil {
				if errors.Is(err, ErrAdminDisabled) {
					http.Error(w, "Forbidden: admin access disabled", http.StatusForbidden)
					return
				}
				http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Admin-Token"))
}

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
}

// AllowedOriginsFromEnv reads CORS_ALLOWED_ORIGINS (comma separated),
// falling back to the local dev servers.
func AllowedOriginsFromEnv() []string {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if strings.TrimSpace(raw) == "" {
		return defaultOrigins
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Echo the origin back only if it's on our allow-list
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization, X-Admin-Token")
			}

			w.Header().Set("Access-Control-Expose-Headers", "Cache-Control")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
