package api

import (
	"context"
	"fmt"
	"gigacode/internal/config"
	"gigacode/internal/http-server/handlers/codes"
	"gigacode/internal/http-server/handlers/errors"
	"gigacode/internal/http-server/handlers/jobs"
	"gigacode/internal/http-server/handlers/webhook"
	"gigacode/internal/http-server/middleware/authenticate"
	"gigacode/internal/http-server/middleware/timeout"
	"gigacode/lib/sl"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const (
	requestTimeout = 10 * time.Second
	jobTimeout     = 2 * time.Minute
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	webhook.Core
	codes.Core
	jobs.Core
}

func NewRouter(conf *config.Config, log *slog.Logger, handler Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/webhook", func(rootWH chi.Router) {
		rootWH.Use(timeout.Timeout(requestTimeout))
		rootWH.Post("/line", webhook.Line(log, conf.Line.ChannelSecret, handler))
		rootWH.Get("/line", webhook.Verify(log))
	})
	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Group(func(c chi.Router) {
			c.Use(timeout.Timeout(requestTimeout))
			c.Get("/codes", codes.List(log, handler))
			c.Get("/codes/summary", codes.Summary(log, handler))
			c.Post("/codes/{code}/used", codes.MarkUsed(log, handler))
		})
		rootApi.Route("/jobs", func(j chi.Router) {
			j.Use(timeout.Timeout(jobTimeout))
			j.Post("/ingest", jobs.Ingest(log, handler))
			j.Post("/expiry", jobs.Expiry(log, handler))
		})
	})
	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler) *Server {
	server := &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      NewRouter(conf, log, handler),
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: jobTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// Start blocks until the server stops; a clean Shutdown returns http.ErrServerClosed.
func (s *Server) Start() error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))

	return s.httpServer.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
