package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/veridex/claimsearch/internal/catalog"
	"github.com/veridex/claimsearch/internal/registry"
	"github.com/veridex/claimsearch/internal/search"
	"github.com/veridex/claimsearch/internal/search/cache"
	"github.com/veridex/claimsearch/internal/snapshot"
	"github.com/veridex/claimsearch/internal/storage"
	"github.com/veridex/claimsearch/internal/stream"
	"github.com/veridex/claimsearch/internal/transport/httpapi"
	"github.com/veridex/claimsearch/pkg/config"
	"github.com/veridex/claimsearch/pkg/health"
	"github.com/veridex/claimsearch/pkg/logger"
	"github.com/veridex/claimsearch/pkg/metrics"
	"github.com/veridex/claimsearch/pkg/middleware"
	pkgpostgres "github.com/veridex/claimsearch/pkg/postgres"
	pkgredis "github.com/veridex/claimsearch/pkg/redis"
	"github.com/veridex/claimsearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting claim registry", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	ephemeral, err := storage.OpenBadgerStore(cfg.Ephemeral.Dir, cfg.Ephemeral.InMemory)
	if err != nil {
		slog.Error("failed to open ephemeral store", "dir", cfg.Ephemeral.Dir, "error", err)
		os.Exit(1)
	}
	defer ephemeral.Close()

	durable := storage.NewIPFSStore(cfg.Ipfs.APIAddr, cfg.Ipfs.RequestTimeout)
	controller := storage.NewController(durable, ephemeral, storage.ControllerConfig{
		ProbeInterval: cfg.Fallback.ProbeInterval,
		CallTimeout:   cfg.Fallback.CallTimeout,
		Pin:           cfg.Ipfs.Pin,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Fallback.FailureThreshold,
			ResetTimeout:     cfg.Fallback.ResetTimeout,
		},
	})
	controller.Subscribe(func(ev storage.Event) {
		m.FallbackState.Set(float64(ev.To))
		m.FallbackTransitionsTotal.WithLabelValues(string(ev.Reason)).Inc()
	})
	go controller.Run(ctx)

	cat := catalog.New()
	regOpts := []registry.Option{registry.WithMetrics(m)}

	var snapStore *snapshot.Store
	if cfg.Postgres.Enabled {
		pgClient, err := pkgpostgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgClient.Close()
		snapStore, err = snapshot.New(ctx, pgClient)
		if err != nil {
			slog.Error("failed to initialize snapshot store", "error", err)
			os.Exit(1)
		}
		rows, err := snapStore.LoadAll(ctx)
		if err != nil {
			slog.Error("failed to load snapshots", "error", err)
			os.Exit(1)
		}
		for _, row := range rows {
			cat.Upsert(row.Record, row.Ref)
		}
		slog.Info("catalog rehydrated from snapshot store", "records", len(rows))
		regOpts = append(regOpts, registry.WithSnapshotter(snapStore))
	}

	var searchCache *cache.Cache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			searchCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			regOpts = append(regOpts, registry.WithMutationHook(func(ctx context.Context) {
				if _, err := searchCache.Invalidate(ctx); err != nil {
					slog.Warn("search cache invalidation failed", "error", err)
				}
			}))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	reg := registry.New(cat, controller, regOpts...)
	engine := search.New(cat, cfg.Search)

	if cfg.Kafka.Enabled {
		bridge := stream.NewEventBridge(cfg.Kafka)
		defer bridge.Close()
		controller.Subscribe(bridge.Subscriber())

		consumer := stream.NewIngestConsumer(cfg.Kafka, reg)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("ingest consumer error", "error", err)
			}
		}()
		slog.Info("kafka ingest pipeline started",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topics.ClaimIngest,
		)
	}

	checker := health.NewChecker()
	checker.Register("durable_tier", func(ctx context.Context) health.ComponentHealth {
		if err := durable.HealthCheck(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("ephemeral_tier", func(ctx context.Context) health.ComponentHealth {
		if err := ephemeral.HealthCheck(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if snapStore != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := snapStore.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	h := httpapi.New(reg, engine, searchCache, controller, m, cfg.Search)
	mux := h.Routes()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("claim registry listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("claim registry stopped")
}
