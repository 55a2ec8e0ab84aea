package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bullshark/src/database"
	"bullshark/src/repository"
	"bullshark/src/server"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

// Standalone read-only API over the bot database: status, trades,
// exceptions and metrics. The trading loop runs from cmd.
func main() {
	_ = godotenv.Load()
	SetupLogger()
	defer handlePanic()

	port := server.GetConfig().Port
	if port == "" {
		port = "8080"
	}

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.StartServer(ctx, port, server.NewRouter(repository.NewStore())); err != nil {
		logger.WithError(err).Error("Server stopped with error")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
}
