package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/auth"
	"github.com/robalobadob/wordduel/internal/config"
	"github.com/robalobadob/wordduel/internal/coordinator"
	"github.com/robalobadob/wordduel/internal/events"
	"github.com/robalobadob/wordduel/internal/history"
	"github.com/robalobadob/wordduel/internal/httpserver"
	"github.com/robalobadob/wordduel/internal/store"
	"github.com/robalobadob/wordduel/internal/words"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	bank, err := words.Load(cfg.WordFiles())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	for lang, n := range bank.Stats() {
		log.Info().Str("lang", string(lang)).Int("words", n).Msg("word list loaded")
	}

	rooms := store.NewMemoryStore(bank)
	pub := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	opts := []coordinator.Option{coordinator.WithEvents(pub)}

	var archive *history.Archive
	if cfg.HistoryDSN != "" {
		archive, err = history.Open(cfg.HistoryDSN)
		if err != nil {
			log.Fatal().Err(err).Str("dsn", cfg.HistoryDSN).Msg("failed to open match archive")
		}
		opts = append(opts, coordinator.WithArchive(archive))
	}

	coord := coordinator.New(rooms, cfg.Language(), opts...)
	srv := httpserver.New(httpserver.Deps{
		Coordinator: coord,
		Rooms:       rooms,
		Words:       bank,
		Issuer:      auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Archive:     archive,
		Origins:     cfg.ClientOrigins,
	})
	hs := srv.HTTPServer(cfg.Addr())

	go func() {
		log.Info().Str("port", cfg.Port).Str("lang", string(cfg.Language())).Msg("starting wordduel")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if archive != nil {
		if err := archive.Close(); err != nil {
			log.Error().Err(err).Msg("close archive")
		}
	}
	if err := pub.Close(); err != nil {
		log.Error().Err(err).Msg("close event publisher")
	}
}
