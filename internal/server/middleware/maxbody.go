package middleware

import (
	"net/http"
)

// MaxBodySize is the default request body limit.
const MaxBodySize = 1 << 20

// MaxBody limits the body of POST, PUT and PATCH requests. A non-positive
// maxSize uses MaxBodySize.
func MaxBody(maxSize int64) Middleware {
	if maxSize <= 0 {
		maxSize = MaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			}
			next.ServeHTTP(w, r)
		})
	}
}
