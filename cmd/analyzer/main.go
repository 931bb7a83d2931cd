package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/health"

	"github.com/chongs12/emotion-analysis/internal/classifier"
	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/internal/server"
	"github.com/chongs12/emotion-analysis/pkg/config"
	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
	"github.com/chongs12/emotion-analysis/pkg/middleware"
	"github.com/chongs12/emotion-analysis/pkg/tracing"
	"github.com/chongs12/emotion-analysis/pkg/utils"
)

const serviceName = "emotion-analyzer"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	logger.SetLevel(cfg.Log.Level)
	logger.Info(ctx, "Starting emotion analysis service", "service", serviceName, "environment", cfg.Server.Mode, "backend", cfg.Classifier.Backend)

	shutdownTracer := tracing.ShutdownFunc(tracing.Noop)
	if cfg.Tracing.Enabled {
		name := cfg.Tracing.ServiceName
		if name == "" {
			name = serviceName
		}
		shutdownTracer, err = tracing.InitTracer(name, cfg.Tracing.Endpoint)
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
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "Redis unreachable, score cache will fall through to the classifier", "error", err.Error())
		}
		defer rdb.Close()
	}

	bm := metrics.DefaultBusinessMetrics()
	clf, closeClassifier, err := classifier.New(ctx, cfg, rdb, bm)
	if err != nil {
		logger.Error(ctx, "Failed to initialize classifier", "error", err.Error())
		os.Exit(1)
	}
	defer closeClassifier()

	analyzer := emotion.NewAnalyzer(clf, cfg.Analyzer.MaxWords, cfg.Analyzer.Concurrency, serviceName, bm)
	handler := emotion.NewHandler(analyzer, cfg.Analyzer.RequestTimeout)

	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.Enabled {
		authMiddleware = middleware.NewAuthMiddleware(utils.NewJWTManager(cfg.Auth.Secret, cfg.Auth.ExpireTime, cfg.Auth.Issuer))
	}

	var healthServer *health.Server
	grpcServer, hs := server.NewGRPCServer()
	if cfg.Server.GRPCPort != "" {
		healthServer = hs
	}
	readiness := server.NewReadiness(healthServer)

	router := server.NewRouter(server.Options{
		Service:   serviceName,
		Mode:      cfg.Server.Mode,
		Handler:   handler,
		Auth:      authMiddleware,
		Readiness: readiness,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info(ctx, "Starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	if healthServer != nil {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
		if err != nil {
			logger.Error(ctx, "Failed to listen for gRPC", "port", cfg.Server.GRPCPort, "error", err.Error())
			os.Exit(1)
		}
		go func() {
			logger.Info(ctx, "Starting gRPC health server", "port", cfg.Server.GRPCPort)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error(ctx, "gRPC server stopped", "error", err.Error())
			}
		}()
	}

	// 预热模型：成功前 /ready 返回 503，失败时持续重试
	warmCtx, stopWarmup := context.WithCancel(ctx)
	go warmup(warmCtx, clf, cfg.Classifier.ProbeText, readiness)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server...")
	stopWarmup()
	readiness.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server forced to shutdown", "error", err.Error())
	}
	grpcServer.GracefulStop()
	logger.Info(ctx, "Server exited")
}

func warmup(ctx context.Context, clf emotion.Classifier, probe string, readiness *server.Readiness) {
	backoff := time.Second
	for {
		err := classifier.Warmup(ctx, clf, probe)
		if err == nil {
			readiness.SetReady(true)
			return
		}
		logger.Warn(ctx, "Classifier warmup failed, retrying", "error", err.Error(), "retry_in", backoff.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
