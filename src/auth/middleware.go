package auth

import (
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const apiPrincipal = "api"

// BearerMiddleware checks "Authorization: Bearer <token>" against a bcrypt hash of the API
// token. An empty hash disables the check and every request runs as an anonymous principal.
func BearerMiddleware(tokenHash string) func(http.Handler) http.Handler {
	if tokenHash == "" {
		logger.Warn("API_TOKEN_HASH not set, API authentication disabled")
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := WithPrincipal(r.Context(), &Principal{Name: "anonymous"})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	hash := []byte(tokenHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
				logger.WithField("path", r.URL.Path).Warn("rejected API token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithPrincipal(r.Context(), &Principal{Name: apiPrincipal, Authenticated: true})
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
