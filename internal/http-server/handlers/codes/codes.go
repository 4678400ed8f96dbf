package codes

import (
	"context"
	"errors"
	"gigacode/entity"
	"gigacode/internal/ledger"
	"gigacode/lib/api/cont"
	"gigacode/lib/api/response"
	"gigacode/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Rows(ctx context.Context) ([]entity.CodeRow, error)
	UnusedSummary(ctx context.Context) ([]entity.DenominationCount, error)
	MarkUsed(ctx context.Context, code string) error
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.codes"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user", cont.Caller(r.Context())),
	)
}

// List returns the whole ledger, each row with its presentation style.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		rows, err := handler.Rows(r.Context())
		if err != nil {
			logger.Error("list codes", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Errorf("List codes: %v", err))
			return
		}
		logger.Debug("codes listed", slog.Int("count", len(rows)))

		render.JSON(w, r, response.Ok(rows))
	}
}

func Summary(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		summary, err := handler.UnusedSummary(r.Context())
		if err != nil {
			logger.Error("unused summary", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Errorf("Summary: %v", err))
			return
		}

		render.JSON(w, r, response.Ok(summary))
	}
}

func MarkUsed(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		logger := requestLogger(log, r).With(sl.Code(code))

		err := handler.MarkUsed(r.Context(), code)
		if errors.Is(err, ledger.ErrNotFound) {
			logger.Debug("no unused row")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("No unused row for this code"))
			return
		}
		if err != nil {
			logger.Error("mark used", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Errorf("Mark used: %v", err))
			return
		}

		render.JSON(w, r, response.Ok(nil))
	}
}
