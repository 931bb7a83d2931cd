package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/chongs12/emotion-analysis/internal/classifier"
	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/internal/jobs"
	"github.com/chongs12/emotion-analysis/pkg/config"
	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
	"github.com/chongs12/emotion-analysis/pkg/rabbitmq"
	"github.com/chongs12/emotion-analysis/pkg/tracing"
)

const serviceName = "emotion-worker"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	logger.SetLevel(cfg.Log.Level)
	logger.Info(ctx, "Starting emotion analysis worker", "service", serviceName, "queue", cfg.RabbitMQ.Queue)

	shutdownTracer := tracing.ShutdownFunc(tracing.Noop)
	if cfg.Tracing.Enabled {
		shutdownTracer, err = tracing.InitTracer(serviceName, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Error(ctx, "Failed to init tracer", "error", err.Error())
			os.Exit(1)
		}
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			logger.Error(ctx, "Failed to shutdown tracer", "error", err.Error())
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	bm := metrics.DefaultBusinessMetrics()
	clf, closeClassifier, err := classifier.New(ctx, cfg, rdb, bm)
	if err != nil {
		logger.Error(ctx, "Failed to initialize classifier", "error", err.Error())
		os.Exit(1)
	}
	defer closeClassifier()

	if err := classifier.Warmup(ctx, clf, cfg.Classifier.ProbeText); err != nil {
		logger.Error(ctx, "Classifier warmup failed", "error", err.Error())
		os.Exit(1)
	}

	mq, err := rabbitmq.NewClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Error(ctx, "Failed to connect to RabbitMQ", "error", err.Error())
		os.Exit(1)
	}
	defer mq.Close()

	deliveries, err := mq.Consume(cfg.Worker.Prefetch)
	if err != nil {
		logger.Error(ctx, "Failed to start consuming", "error", err.Error())
		os.Exit(1)
	}

	// 独立的指标端口，仅暴露 /metrics 与 /health
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler(metrics.DefaultRegistry())))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName, "timestamp": time.Now().Unix()})
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Server.Port), Handler: router}
	go func() {
		logger.Info(ctx, "Starting metrics server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Metrics server stopped", "error", err.Error())
		}
	}()

	analyzer := emotion.NewAnalyzer(clf, cfg.Analyzer.MaxWords, cfg.Analyzer.Concurrency, serviceName, bm)
	worker := jobs.NewWorker(analyzer, mq, cfg.Worker.Concurrency, cfg.Analyzer.RequestTimeout, bm)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		if amqpErr, ok := <-mq.NotifyClose(); ok {
			logger.Error(ctx, "RabbitMQ connection closed", "error", amqpErr.Error())
			stop()
		}
	}()

	logger.Info(ctx, "Worker consuming", "prefetch", cfg.Worker.Prefetch, "concurrency", cfg.Worker.Concurrency)
	if err := worker.Run(runCtx, deliveries); err != nil {
		logger.Error(ctx, "Worker stopped with error", "error", err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Metrics server forced to shutdown", "error", err.Error())
	}
	logger.Info(ctx, "Worker exited")
}
