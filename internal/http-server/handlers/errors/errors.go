package errors

import (
	"gigacode/lib/api/response"
	"gigacode/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// NotFound answers routes the router does not know.
func NotFound(log *slog.Logger) http.HandlerFunc {
	return fail(log, http.StatusNotFound, "Requested resource not found")
}

// NotAllowed answers known routes called with the wrong method.
func NotAllowed(log *slog.Logger) http.HandlerFunc {
	return fail(log, http.StatusMethodNotAllowed, "Method not allowed")
}

func fail(log *slog.Logger, status int, message string) http.HandlerFunc {
	logger := log.With(sl.Module("http.handlers.errors"))
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(message,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		render.Status(r, status)
		render.JSON(w, r, response.Error(message))
	}
}
