package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"loot-tracker-api/internal/cache"
	"loot-tracker-api/internal/config"
	"loot-tracker-api/internal/events"
	"loot-tracker-api/internal/features"
	"loot-tracker-api/internal/gemini"
	"loot-tracker-api/internal/handler"
	"loot-tracker-api/internal/middleware"
	"loot-tracker-api/internal/service"
	"loot-tracker-api/internal/store"
	"loot-tracker-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file")
	port := flag.String("port", "", "Server port (overrides config)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		sugar.Fatalw("configuration error", "error", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("invalid configuration", "error", err)
	}

	// Tracing
	if _, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		sugar.Fatalw("tracing initialization error", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(ctx)
	}()

	// Response cache
	var responseCache cache.Cache
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "redis":
			redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
			if err != nil {
				sugar.Fatalw("redis cache initialization error", "error", err)
			}
			defer redisCache.Close()
			responseCache = redisCache
		default:
			responseCache = cache.NewMemoryCache()
		}
	}

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureAutoSync, cfg.Sync.AutoSyncOnStart, "Run one offer sync at startup")
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled, "Cache collaborator responses")
	flags.Register(features.FeatureEventHooks, true, "In-process event hooks")

	// Event hooks
	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooks))
	defer eventManager.Shutdown()
	for _, et := range []events.EventType{
		events.EventOfferClaimed,
		events.EventOffersSynced,
		events.EventOfferAnalyzed,
		events.EventCardAdded,
		events.EventCardRemoved,
	} {
		eventManager.Subscribe(et, func(ctx context.Context, e events.Event) error {
			sugar.Debugw("event", "type", e.Type, "at", e.Timestamp)
			return nil
		})
	}

	// State and collaborators
	offers := store.NewOfferStore(store.SeedOffers())
	cards := store.NewCardRegistry(store.SeedCards())
	aiClient := gemini.NewClient(
		cfg.Collaborator.BaseURL,
		cfg.Collaborator.APIKey,
		cfg.Collaborator.Model,
		time.Duration(cfg.Collaborator.TimeoutSeconds)*time.Second,
	)

	svc := service.NewService(service.Deps{
		Offers:   offers,
		Cards:    cards,
		AI:       aiClient,
		Cache:    responseCache,
		CacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		Events:   eventManager,
		Features: flags,
		Logger:   sugar,
	})

	h := handler.NewHandlerWithOptions(svc, handler.Options{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
		Logger:      sugar,
	})

	// Rate limiter
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
	}

	// Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing())
	if rateLimiter != nil {
		r.Use(middleware.RateLimit(rateLimiter))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/offers", func(r chi.Router) {
		r.Get("/", h.ListOffers)
		r.Post("/sync", h.SyncOffers)
		r.Post("/analyze", h.AnalyzeScreenshot)
		r.Post("/{id}/claim", h.ClaimOffer)
	})

	r.Route("/cards", func(r chi.Router) {
		r.Get("/", h.ListCards)
		r.Post("/", h.AddCard)
		r.Delete("/{id}", h.RemoveCard)
	})

	r.Get("/dashboard", h.Dashboard)
	r.Get("/strategy", h.Strategy)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// One automatic sync at startup; failure keeps the seed offers.
	if flags.IsEnabled(features.FeatureAutoSync) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Collaborator.TimeoutSeconds)*time.Second)
			defer cancel()
			if _, err := svc.Sync(ctx, time.Now()); err != nil {
				sugar.Warnw("initial sync failed, using seed offers", "error", err)
			}
		}()
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		sugar.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("server shutdown error", "error", err)
		}
	}()

	sugar.Infow("starting loot tracker server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		sugar.Fatalw("server failed", "error", err)
	}
	sugar.Info("server stopped")
}
