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
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/ordernotify/internal/listener/application"
	"github.com/wyfcoding/ordernotify/internal/listener/codec"
	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/internal/listener/infrastructure/exchange"
	"github.com/wyfcoding/ordernotify/internal/listener/infrastructure/messaging"
	"github.com/wyfcoding/ordernotify/internal/listener/infrastructure/persistence/mysql"
	listenerredis "github.com/wyfcoding/ordernotify/internal/listener/infrastructure/persistence/redis"
	"github.com/wyfcoding/ordernotify/internal/listener/infrastructure/sender"
	"github.com/wyfcoding/ordernotify/internal/listener/interfaces/consumer"
	listenerhttp "github.com/wyfcoding/ordernotify/internal/listener/interfaces/http"
	"github.com/wyfcoding/ordernotify/pkg/cache"
	"github.com/wyfcoding/ordernotify/pkg/config"
	"github.com/wyfcoding/ordernotify/pkg/db"
	"github.com/wyfcoding/ordernotify/pkg/logger"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
	"github.com/wyfcoding/ordernotify/pkg/mq"
)

var configPath = flag.String("config", "configs/futureslistener/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if cfg.Listener.Kind != string(domain.KindFutures) {
		panic(fmt.Sprintf("listener kind %q does not match binary", cfg.Listener.Kind))
	}

	// 2. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get()

	// 3. Metrics
	metricsImpl := metrics.New(cfg.ServiceName)

	// 4. Infrastructure
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close(database)

	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(&mysql.PartialOrderModel{}); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	kafkaCfg := mq.Config{
		Brokers:        cfg.Kafka.Brokers,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	producer := mq.NewProducer(kafkaCfg)
	defer producer.Close()

	// 5. Repositories
	sessionRepo := listenerredis.NewUserSessionRepository(redisCache.GetClient())
	partialRepo := mysql.NewPartialOrderRepository(database)

	// 6. Application Services
	commandBus := messaging.NewCommandBus(producer, cfg.Listener.CommandTopic)
	commander := application.NewCommander(commandBus, log)

	notifier := sender.NewLogNotifier(log)
	aggregator := application.NewFillAggregator(partialRepo, notifier, metricsImpl, log)

	dialer := exchange.NewDialer(cfg.Exchange, log)
	factory := application.NewSessionFactory(dialer, codec.NewFuturesCodec(), aggregator, sessionRepo, metricsImpl, log)
	registry := application.NewRegistry(domain.KindFutures, sessionRepo, factory, metricsImpl, log)

	// 7. Interfaces
	commandHandler := consumer.NewCommandHandler(registry, metricsImpl, log)
	busConsumer := mq.NewBroadcastConsumer(kafkaCfg, cfg.Listener.CommandTopic, cfg.ServiceName)
	subscriber := messaging.NewCommandSubscriber(busConsumer, commandHandler, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metricsImpl.Handler()))
	}
	httpHandler := listenerhttp.NewListenerHandler(commander, registry)
	httpHandler.RegisterRoutes(r.Group("/api"))

	// 8. Start
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		registry.StartAll(ctx)
		registry.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return subscriber.Run(ctx)
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		registry.StopAll(shutdownCtx)
		_ = busConsumer.Close()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("service exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("service stopped")
}
