package middleware

import (
	"mime"
	"net/http"
)

// Media types accepted by ContentType.
const (
	MediaTypeJSON = "application/json"
	MediaTypeForm = "application/x-www-form-urlencoded"
)

// ContentType rejects POST, PUT and PATCH requests whose Content-Type is not one of allowed.
// With no arguments only JSON is accepted.
func ContentType(allowed ...string) func(http.Handler) http.Handler {
	if len(allowed) == 0 {
		allowed = []string{MediaTypeJSON}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Content-Type")
			if header == "" {
				http.Error(w, "Content-Type header is required", http.StatusBadRequest)
				return
			}
			mediaType, _, err := mime.ParseMediaType(header)
			if err != nil {
				http.Error(w, "Malformed Content-Type header", http.StatusBadRequest)
				return
			}
			for _, a := range allowed {
				if mediaType == a {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Unsupported Content-Type", http.StatusUnsupportedMediaType)
		})
	}
}
