package timeout

import (
	"context"
	"errors"
	"gigacode/lib/api/response"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Timeout bounds the request context; handlers pass it on to the ledger
// and to outbound API calls. A handler that runs out of time without
// writing a response gets a 504.
func Timeout(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			if ww.Status() == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				render.Status(r, http.StatusGatewayTimeout)
				render.JSON(ww, r, response.Error("Request timed out"))
			}
		}
		return http.HandlerFunc(fn)
	}
}
