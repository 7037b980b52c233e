package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sakuga/internal/adapter/repo"
	"sakuga/internal/auth"
	"sakuga/internal/generation"
	"sakuga/internal/http/handlers"
	httpapi "sakuga/internal/http/httpapi"
	"sakuga/internal/infra"
	"sakuga/internal/infra/geoip"
	"sakuga/internal/prompt"
	"sakuga/internal/providers"
	"sakuga/internal/queue"
	"sakuga/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	queueRepo := repo.NewQueueRepository(dbpool)
	historyRepo := repo.NewHistoryRepository(dbpool)
	collectionRepo := repo.NewCollectionRepository(dbpool)
	favoriteRepo := repo.NewFavoriteRepository(dbpool)
	apiKeyRepo := repo.NewAPIKeyRepository(dbpool)
	userRepo := repo.NewUserRepository(dbpool)
	sessionRepo := repo.NewSessionRepository(dbpool)

	keychain := providers.NewKeychain(apiKeyRepo, providers.EnvFallbacks(os.Getenv))
	registry := providers.NewRegistry(providers.Options{
		Keys:     keychain,
		A1111URL: cfg.A1111URL,
	})

	recorder := generation.NewRecorder(store, historyRepo, logger)
	processor := queue.NewProcessor(queueRepo, registry, recorder, logger)
	if err := processor.ResetStale(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to reset stale jobs")
	}
	processor.Kick()

	enhancer := prompt.NewChain(
		prompt.NewOpenAIEnhancer(keychain, cfg.EnhanceModel),
		prompt.NewGeminiEnhancer(keychain, nil),
		prompt.NewStaticEnhancer(),
	)

	app := &handlers.App{
		Log:         logger,
		Registry:    registry,
		Queue:       queueRepo,
		History:     historyRepo,
		Collections: collectionRepo,
		Favorites:   favoriteRepo,
		Keys:        apiKeyRepo,
		Auth:        auth.NewService(userRepo, sessionRepo),
		Processor:   processor,
		Recorder:    recorder,
		Enhancer:    enhancer,
		Store:       store,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Log:            logger,
		Countries:      countries,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
