package logger

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	envLocal    = "local"
	envDev      = "dev"
	envProd     = "prod"
	logFileName = "gigacode.log"
)

// SetupLogger writes to stdout for local runs and to gigacode.log under
// path otherwise. Records at ERROR and above are also pushed through
// notifier when it is not nil.
func SetupLogger(env, path string, notifier Notifier) *slog.Logger {
	var handler slog.Handler

	switch env {
	case envLocal:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envDev:
		handler = slog.NewTextHandler(openLogFile(env, path), &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		handler = slog.NewTextHandler(openLogFile(env, path), &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		log.Fatal("invalid environment: ", env)
	}

	if notifier != nil {
		handler = NewNotifyHandler(handler, notifier, slog.LevelError)
	}
	return slog.New(handler)
}

func openLogFile(env, path string) *os.File {
	logPath := filepath.Join(path, logFileName)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("error opening log file: ", err)
	}
	log.Printf("env: %s; log file: %s", env, logPath)
	return logFile
}
