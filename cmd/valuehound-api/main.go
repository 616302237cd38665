package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/config"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/oracle"
	"github.com/valuehound/valuehound/internal/server"
	"github.com/valuehound/valuehound/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if missing := cfg.MissingForServer(); len(missing) > 0 {
		log.Fatal().Msgf("missing required config: %s", strings.Join(missing, ", "))
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath, storage.DeriveKey(cfg.TokenKey))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	search := ebay.NewClient(ebay.ClientOpts{
		ClientID:     cfg.EbayClientID,
		ClientSecret: cfg.EbayClientSecret,
		StaticToken:  cfg.EbayOAuth,
		TokenStore:   store,
	})

	var watchDB oracle.Oracle
	if cfg.WatchDBBaseURL != "" {
		watchDB = oracle.NewWatchDB(oracle.WatchDBOpts{
			BaseURL: cfg.WatchDBBaseURL,
			APIKey:  cfg.WatchDBAPIKey,
		})
	}
	aiSearch, err := oracle.NewAISearch(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize ai price search")
	}
	priceOracle := oracle.NewCached(oracle.NewChain(watchDB, aiSearch), store, cfg.QuoteCacheTTL)

	router := server.NewRouter(&server.Handler{
		Search: search,
		Oracle: priceOracle,
		Cfg: arb.Config{
			TaxRate:      &cfg.TaxRate,
			ThresholdPct: &cfg.ThresholdPct,
		},
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
