package main

import (
	"context"
	"errors"
	"flag"
	"gigacode/bot"
	"gigacode/impl/auth"
	"gigacode/impl/core"
	"gigacode/impl/dialog"
	"gigacode/impl/expiry"
	"gigacode/internal/config"
	"gigacode/internal/database"
	"gigacode/internal/gmail"
	"gigacode/internal/http-server/api"
	"gigacode/internal/ledger"
	"gigacode/internal/line"
	"gigacode/internal/notify"
	"gigacode/internal/scheduler"
	"gigacode/lib/clock"
	"gigacode/lib/logger"
	"gigacode/lib/sl"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	runServe  = "serve"
	runIngest = "ingest"
	runExpiry = "expiry"
)

// handler joins the parts the HTTP server talks to.
type handler struct {
	*core.Core
	*dialog.Dialog
	*auth.Auth
	*line.Client
}

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	run := flag.String("run", runServe, "serve | ingest | expiry")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	loc := clock.LoadLocation(conf.Location)

	// operators get every ERROR record through the push transports
	fanout := notify.NewFanout()
	lg := logger.SetupLogger(conf.Env, *logPath, fanout)
	lg.Info("starting gigacode",
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("run", *run))

	lineClient, err := line.NewClient(line.Config{
		AccessToken:    conf.Line.AccessToken,
		NotifyToken:    conf.Line.NotifyToken,
		ApiEndpoint:    conf.Line.ApiEndpoint,
		NotifyEndpoint: conf.Line.NotifyEndpoint,
	}, lg)
	if err != nil {
		log.Fatal(err)
	}
	if conf.Line.NotifyToken != "" {
		fanout.Add(lineClient)
	}

	var store core.Ledger
	switch {
	case conf.Mongo.Enabled:
		store = database.NewMongoClient(conf)
		lg.Info("mongodb ledger", slog.String("host", conf.Mongo.Host), slog.String("database", conf.Mongo.Database))
	case conf.MySql.Enabled:
		sqlClient, err := database.NewSQLClient(conf)
		if err != nil {
			lg.Error("mysql ledger", sl.Err(err))
			log.Fatal(err)
		}
		defer sqlClient.Close()
		store = sqlClient
		lg.Info("mysql ledger", slog.String("host", conf.MySql.HostName), slog.String("database", conf.MySql.Database))
	default:
		store = ledger.NewTable()
		lg.Warn("no database enabled; using in-memory ledger")
	}

	lifecycle := core.New(store, core.Config{
		Label:          conf.Mail.Label,
		ProcessedLabel: conf.Mail.ProcessedLabel,
		Location:       loc,
	}, lg)
	if conf.Mail.Enabled {
		mail, err := gmail.NewClient(context.Background(), gmail.Config{
			ClientID:     conf.Mail.ClientID,
			ClientSecret: conf.Mail.ClientSecret,
			RefreshToken: conf.Mail.RefreshToken,
		}, lg)
		if err != nil {
			lg.Error("gmail client", sl.Err(err))
			log.Fatal(err)
		}
		lifecycle.SetMailTransport(mail)
	}
	lifecycle.SetExpiryService(expiry.New(lifecycle, fanout, loc, lg))

	authService := auth.New(conf.AllowList, conf.ApiTokens)
	chat := dialog.New(lifecycle, authService, lg)

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, chat, conf.Telegram.NotifyChatIds, lg)
		if err != nil {
			lg.Error("telegram bot", sl.Err(err))
		} else {
			fanout.Add(tgBot)
		}
	}
	lg.Info("push transports", slog.Int("count", fanout.Len()))

	switch *run {
	case runIngest:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := lifecycle.Ingest(ctx); err != nil {
			os.Exit(1)
		}
		return
	case runExpiry:
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := lifecycle.CheckExpiry(ctx); err != nil {
			lg.Error("expiry check", sl.Err(err))
			os.Exit(1)
		}
		return
	case runServe:
	default:
		log.Fatal("invalid run mode: ", *run)
	}

	var jobs *scheduler.Manager
	if conf.Schedule.Enabled {
		jobs, err = scheduler.New(loc, lg)
		if err != nil {
			log.Fatal(err)
		}
		if conf.Mail.Enabled {
			interval := time.Duration(conf.Schedule.IngestIntervalMin) * time.Minute
			if err = jobs.RegisterIngest(interval, lifecycle); err != nil {
				lg.Error("schedule ingest", sl.Err(err))
			}
		}
		if err = jobs.RegisterExpiry(conf.Schedule.ExpiryCron, lifecycle); err != nil {
			lg.Error("schedule expiry", sl.Err(err))
		}
		jobs.Start()
	}

	if tgBot != nil {
		go func() {
			if err := tgBot.Start(); err != nil {
				lg.Error("telegram bot", sl.Err(err))
			}
		}()
	}

	server := api.New(conf, lg, &handler{
		Core:   lifecycle,
		Dialog: chat,
		Auth:   authService,
		Client: lineClient,
	})
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", sl.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	lg.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		lg.Warn("server shutdown", sl.Err(err))
	}
	if jobs != nil {
		if err := jobs.Stop(); err != nil {
			lg.Warn("scheduler shutdown", sl.Err(err))
		}
	}
	if tgBot != nil {
		tgBot.Stop()
	}
}
