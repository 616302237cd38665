package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/bot"
	"github.com/valuehound/valuehound/internal/config"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/oracle"
	"github.com/valuehound/valuehound/internal/storage"
	"github.com/valuehound/valuehound/internal/vision"
	"github.com/valuehound/valuehound/internal/watcher"
)

const logFileName = "valuehound.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if missing := cfg.MissingForBot(); len(missing) > 0 {
		log.Fatal().Msgf("missing required config: %s", strings.Join(missing, ", "))
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it, and ProtectSystem=strict
	// makes the working directory read-only).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		// Local development: log to both stderr and file
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		multiWriter := io.MultiWriter(consoleWriter, fileWriter)
		log.Logger = log.Output(multiWriter)

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	store, err := storage.NewSQLiteStore(cfg.DBPath, storage.DeriveKey(cfg.TokenKey))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	search := ebay.NewClient(ebay.ClientOpts{
		ClientID:     cfg.EbayClientID,
		ClientSecret: cfg.EbayClientSecret,
		StaticToken:  cfg.EbayOAuth,
		TokenStore:   store,
	})

	priceOracle, err := buildOracle(ctx, cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize price oracle")
	}

	evaluator := arb.NewEvaluator(priceOracle, arb.Config{
		TaxRate:      &cfg.TaxRate,
		ThresholdPct: &cfg.ThresholdPct,
	})
	analyzer := arb.NewAnalyzer(evaluator)

	gemini, err := vision.NewGeminiIdentifier(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini identifier")
	}
	identifier := vision.NewCachedIdentifier(gemini, store)
	log.Info().Msg("vision identification caching enabled")

	g, ctx := errgroup.WithContext(ctx)

	// Run bot update loop
	g.Go(func() error {
		return runBot(ctx, tg, store, search, identifier, analyzer, cfg)
	})

	// Run watcher service for hunt notifications
	watcherService := watcher.NewService(store, search, analyzer, tg, cfg.HuntInterval)
	g.Go(func() error {
		watcherService.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// buildOracle assembles the price oracle stack: structured watch database
// when configured, AI estimator fallback, sqlite quote cache on top.
func buildOracle(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore) (oracle.Oracle, error) {
	var watchDB oracle.Oracle
	if cfg.WatchDBBaseURL != "" {
		watchDB = oracle.NewWatchDB(oracle.WatchDBOpts{
			BaseURL: cfg.WatchDBBaseURL,
			APIKey:  cfg.WatchDBAPIKey,
		})
		log.Info().Str("baseURL", cfg.WatchDBBaseURL).Msg("watch database configured")
	}

	aiSearch, err := oracle.NewAISearch(ctx)
	if err != nil {
		return nil, err
	}

	chain := oracle.NewChain(watchDB, aiSearch)
	return oracle.NewCached(chain, store, cfg.QuoteCacheTTL), nil
}

func runBot(
	ctx context.Context,
	tg *tgbotapi.BotAPI,
	store *storage.SQLiteStore,
	search *ebay.Client,
	identifier vision.Identifier,
	analyzer *arb.Analyzer,
	cfg *config.Config,
) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, store, search, cfg.AdminTelegramID, cfg.MaxHuntsPerUser)
	b.SetAnalysisClients(identifier, analyzer)

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
