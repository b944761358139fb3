package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/sittichok/user-service/config"
	"github.com/sittichok/user-service/internal/container"
	"github.com/sittichok/user-service/internal/infrastructure/broker"
	"github.com/sittichok/user-service/internal/infrastructure/memory"
	pginfra "github.com/sittichok/user-service/internal/infrastructure/postgres"
	"github.com/sittichok/user-service/internal/interface/middleware"
	"github.com/sittichok/user-service/internal/outbox"
	"github.com/sittichok/user-service/internal/router"
	"github.com/sittichok/user-service/pkg/helpers"
	"github.com/sittichok/user-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// User store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory user store; data is lost on restart")
		container.SetUserRepo(memory.NewUserRepository())
		container.SetOutboxRepo(memory.NewOutboxRepository())
	default:
		pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
			DSN:         cfg.PostgresDSN(),
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		container.SetPGPool(pool)
		container.SetUserRepo(pginfra.NewUserRepository(pool))
		container.SetOutboxRepo(pginfra.NewOutboxRepository(pool))
	}

	// Redis (optional: profile cache and rate limits)
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// Elasticsearch (optional)
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch disabled")
		es = nil
	}

	// RabbitMQ: dialed lazily so the API can start while the broker is down
	rabbit := helpers.NewRabbitConn(cfg.RabbitMQURL)
	defer rabbit.Close()
	provider := broker.ProviderFunc(func(ctx context.Context) (broker.Channel, error) {
		ch, err := rabbit.Channel(ctx)
		if err != nil {
			return nil, err
		}
		return ch, nil
	})
	topology := broker.NewTopology(provider, broker.TopologyConfig{
		Exchange: cfg.ExchangeName(),
		Queue:    cfg.ProductQueueName(),
		Timeout:  cfg.BrokerTimeout,
	}, logger)
	brokerClient := broker.NewClient(topology, broker.NewPublisher(cfg.AppName, cfg.BrokerTimeout))
	helpers.LogInfo(logger, "broker configured", logrus.Fields{"exchange": topology.Exchange(), "queue": topology.Queue(), "timeout": cfg.BrokerTimeout.String()})

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetRedis(rdb)
	container.SetES(es)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTSecret))
	container.SetRabbitConn(rabbit)
	container.SetBroker(brokerClient)

	if cfg.OutboxEnabled {
		relay := outbox.NewRelay(container.GetOutboxRepo(), brokerClient, logger, cfg.OutboxInterval, cfg.OutboxBatchSize)
		go relay.Run(ctx)
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r, "/api")
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}
