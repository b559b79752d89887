package middleware

import (
	"net/http"
	"strconv"
)

// Common size limits
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize covers every JSON body the API accepts.
	DefaultMaxBodySize = 1 * MB

	// SmallMaxBodySize is for cart and stock mutations.
	SmallMaxBodySize = 16 * KB
)

// MaxBodySize limits request bodies. Requests that declare a larger body are
// refused up front; others are cut off by http.MaxBytesReader while decoding.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondTooLarge(w, r, "Request body must not exceed "+strconv.FormatInt(maxBytes, 10)+" bytes")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
