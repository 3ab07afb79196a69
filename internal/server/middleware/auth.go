package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthConfig holds basic auth credentials.
type AuthConfig struct {
	Enabled  bool
	User     string
	Password string
}

// Auth creates a Basic Auth middleware. Paths in excludePaths skip
// authentication; a trailing "*" makes the entry a prefix.
func Auth(config AuthConfig, excludePaths ...string) Middleware {
	if !config.Enabled {
		return passthrough
	}

	exact := make(map[string]bool)
	var prefixes []string
	for _, path := range excludePaths {
		if p, ok := strings.CutSuffix(path, "*"); ok {
			prefixes = append(prefixes, p)
		} else {
			exact[path] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exact[r.URL.Path] || hasAnyPrefix(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(config.User)) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(config.Password)) == 1
			if !userMatch || !passMatch {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func passthrough(next http.Handler) http.Handler {
	return next
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="pacer"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
