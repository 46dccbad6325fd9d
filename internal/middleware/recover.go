package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
)

// Recover converts handler panics into a 500 JSON body carrying the
// panic value, so a single bad request never takes the process down.
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.Error("handler panic", "path", r.URL.Path, "panic", v)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprintf(w, `{"success":false,"error":%q}`, fmt.Sprint(v))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
