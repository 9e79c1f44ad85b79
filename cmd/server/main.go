package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/arangodb"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/id"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/logger"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/otel"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/core/config"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/core/db"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/catalog"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/middleware"
	httprouter "github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/router"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/queue"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/service"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/session"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/template"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "inception starting", "env", cfg.Env, "store", cfg.Store.Backend)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load step catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "step catalog loaded", "steps", cat.Len(), "counted", cat.CountedLen())

	steps, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open step store", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer closeStore()

	events, err := openProducer(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	templates := template.NewRegistry()
	for _, e := range cat.Entries() {
		templates.Register(template.NewOpaqueEditor(e.Name))
	}

	services := service.NewServices(steps, cat, templates, events)

	sessions := session.NewRegistry(cfg.Session.IdleTimeout)
	evictCtx, stopEvict := context.WithCancel(ctx)
	defer stopEvict()
	go sessions.Run(evictCtx, time.Minute)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, sessions)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.Load(cfg.CatalogPath)
	}
	return catalog.Default()
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg config.Config) (store.StepStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendBolt:
		s, err := store.OpenBoltStore(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		slog.InfoContext(ctx, "bolt store opened", "path", cfg.Store.BoltPath)
		return s, func() { _ = s.Close() }, nil

	case config.StoreBackendArangoDB:
		client, err := arangodb.New(ctx, arangodb.Config{
			URL:      cfg.ArangoDB.URL,
			Username: cfg.ArangoDB.Username,
			Password: cfg.ArangoDB.Password,
			Database: cfg.ArangoDB.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := client.EnsureDatabase(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		if err := client.EnsureCollections(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		slog.InfoContext(ctx, "arangodb connected", "database", cfg.ArangoDB.Database)
		return store.NewArangoStore(client), func() { _ = client.Close() }, nil

	case config.StoreBackendPostgres:
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		slog.InfoContext(ctx, "database connected")
		return store.NewPostgresStore(database), database.Close, nil

	default:
		slog.WarnContext(ctx, "using in-memory step store; workshops are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
}

func openProducer(ctx context.Context, cfg config.Config) (queue.Producer, error) {
	if !cfg.Events.Enabled() {
		slog.InfoContext(ctx, "workshop events disabled (no redis url configured)")
		return queue.NewNoopProducer(), nil
	}

	redisOpts, err := redis.ParseURL(cfg.Events.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Events.RedisStream)

	return queue.NewRedisProducer(redisClient, cfg.Events.RedisStream, slog.Default()), nil
}

func setupRouter(cfg config.Config, services *service.Services, sessions *session.Registry) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, sessions)

	return router
}

const banner = `
 _                        ___                      _   _
| |    ___  __ _ _ __    |_ _|_ __   ___ ___ _ __ | |_(_) ___  _ __
| |   / _ \/ _' | '_ \    | || '_ \ / __/ _ \ '_ \| __| |/ _ \| '_ \
| |__|  __/ (_| | | | |   | || | | | (_|  __/ |_) | |_| | (_) | | | |
|_____\___|\__,_|_| |_|  |___|_| |_|\___\___| .__/ \__|_|\___/|_| |_|
                                            |_|
`
