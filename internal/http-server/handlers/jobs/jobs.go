package jobs

import (
	"context"
	"errors"
	"gigacode/entity"
	"gigacode/internal/promocode"
	"gigacode/lib/api/response"
	"gigacode/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Ingest(ctx context.Context) (*entity.IngestReport, error)
	CheckExpiry(ctx context.Context) (int, error)
}

type ExpiryReport struct {
	Notified int `json:"notified"`
}

// Ingest runs one ingestion pass on demand. A mail without codes answers
// 422 with the partial report.
func Ingest(log *slog.Logger, handler Core) http.HandlerFunc {
	mod := sl.Module("http.handlers.jobs")

	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		report, err := handler.Ingest(r.Context())
		if errors.Is(err, promocode.ErrNoCodes) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Partial(err, report))
			return
		}
		if err != nil {
			logger.Error("ingest", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Errorf("Ingest: %v", err))
			return
		}

		render.JSON(w, r, response.Ok(report))
	}
}

func Expiry(log *slog.Logger, handler Core) http.HandlerFunc {
	mod := sl.Module("http.handlers.jobs")

	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		count, err := handler.CheckExpiry(r.Context())
		if err != nil {
			logger.Error("expiry check", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Errorf("Expiry check: %v", err))
			return
		}

		render.JSON(w, r, response.Ok(ExpiryReport{Notified: count}))
	}
}
