package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/question-bank/internal/app"
	"github.com/gokatarajesh/question-bank/internal/config"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Warn().Err(err).Msg("could not load .env file")
		}
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load(loadCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	instance, err := app.New(appCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build app")
	}

	if err := instance.Run(appCtx); err != nil {
		log.Fatal().Err(err).Msg("runtime error")
	}
}
