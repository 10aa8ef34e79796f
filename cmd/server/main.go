package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/config"
	"github.com/Simplici0/costestimator/internal/estimator"
	"github.com/Simplici0/costestimator/internal/generate"
	"github.com/Simplici0/costestimator/internal/logger"
	"github.com/Simplici0/costestimator/internal/store"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.IsDev())
	cfg.LogWarnings()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	projects, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open project store")
	}
	defer projects.Close()

	gen, closeGen, err := buildGenerator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure text generation")
	}
	defer closeGen()

	srv := &server{
		auth: newAuthService(cfg.SessionSecret),
		svc:  estimator.New(cat, projects, gen),
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
		// AI estimates wait on the generator.
		WriteTimeout: cfg.GenAI.Timeout + 15*time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Int("materials", len(cat.Materials())).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

func newRouter(srv *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(srv.auth.identify)

	r.Get("/healthz", srv.handleHealth)
	r.Get("/catalog", srv.handleCatalog)
	r.Post("/session", srv.handleSession)
	r.Post("/logout", srv.handleLogout)
	r.Post("/estimates", srv.handleSubmitEstimate)
	r.Post("/estimates/ai", srv.handleAIEstimate)

	r.Route("/projects", func(r chi.Router) {
		r.Use(requireOwner)
		r.Get("/", srv.handleProjectsList)
		r.Get("/{id}", srv.handleProjectDetail)
		r.Get("/{id}/text", srv.handleProjectText)
		r.Get("/{id}/xlsx", srv.handleProjectXLSX)
	})

	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, err
	}

	if cfg.OverheadRate != nil {
		return cat.WithOverheadRate(*cfg.OverheadRate)
	}
	return cat, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.ProjectStore, error) {
	switch cfg.DBDriver {
	case "postgres":
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return store.OpenSQLite(ctx, cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// buildGenerator returns nil when no API key is configured.
// The cache sits outside the limiter so cached prompts do not consume tokens.
func buildGenerator(cfg config.Config) (generate.Generator, func(), error) {
	noop := func() {}
	if cfg.GenAI.APIKey == "" {
		return nil, noop, nil
	}

	client, err := generate.NewOpenAI(generate.OpenAIConfig{
		APIKey:  cfg.GenAI.APIKey,
		BaseURL: cfg.GenAI.BaseURL,
		Model:   cfg.GenAI.Model,
		Timeout: cfg.GenAI.Timeout,
	})
	if err != nil {
		return nil, noop, err
	}

	var gen generate.Generator = generate.NewLimited(client, cfg.GenAI.RPS, cfg.GenAI.Burst)
	if cfg.GenAI.RedisAddr == "" {
		return gen, noop, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.GenAI.RedisAddr})
	closeRedis := func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis client")
		}
	}
	return generate.NewCached(gen, rdb, cfg.GenAI.CacheTTL), closeRedis, nil
}
