package middleware

import (
	"fmt"
	"net/http"
)

// DefaultMaxRequestSize fits a full workspace snapshot with room to spare
const DefaultMaxRequestSize int64 = 4 << 20

// MaxRequestSize rejects bodies over maxBytes. A declared Content-Length is refused
// up front; chunked bodies are cut off by the reader and surface as *http.MaxBytesError
// in the handler's decoder.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}
	tooLarge := fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, r, http.StatusRequestEntityTooLarge, tooLarge)
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
